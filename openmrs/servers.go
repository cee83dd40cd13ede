package openmrs

import "strings"

type Server struct {
	Name         string
	Label        string
	BaseURL      string
	LocationUUID string
	PatientUUIDs []string
}

var Servers = []Server{
	{
		Name:         "local",
		Label:        "Local OpenMRS (192.168.1.26)",
		BaseURL:      "http://192.168.1.26/openmrs",
		LocationUUID: "73e7259f-6cf6-4443-93e7-3f89fa9aa831",
		PatientUUIDs: []string{
			"8e35f9b9-9e4c-4c2a-b52e-e1bcb5857edf",
			"132b3bdf-d3e3-4f6b-bb71-87ba1fa4c815",
		},
	},
	{
		Name:         "remote",
		Label:        "Remote OpenMRS (qmorrow.tojest.dev)",
		BaseURL:      "http://qmorrow.tojest.dev/openmrs",
		LocationUUID: "8639ead4-ad6c-419f-9944-7d92ff32dcac",
		PatientUUIDs: []string{
			"693b80d8-87a1-4cdc-90fe-09047c6428c3",
			"db27db0b-2048-4918-a93a-58b10ba432de",
		},
	},
}

// LookupServer returns the preset for the base url. Custom servers have no preset.
func LookupServer(baseURL string) (Server, bool) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	for _, server := range Servers {
		if server.BaseURL == baseURL {
			return server, true
		}
	}
	return Server{}, false
}
