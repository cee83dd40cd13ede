package test

import (
	"encoding/json"
	"os"
)

func LoadFixture(relativePath string) ([]byte, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	return os.ReadFile(wd + string(os.PathSeparator) + relativePath)
}

// LoadJSONFixture unmarshals the fixture into a value of the requested type
func LoadJSONFixture[T any](relativePath string) (result T, err error) {
	fixture, err := LoadFixture(relativePath)
	if err != nil {
		return
	}

	err = json.Unmarshal(fixture, &result)
	return
}
