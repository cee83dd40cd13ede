package openmrs

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// The REST API accepts and returns ISO-8601 with millisecond precision
const dateTimeLayout = "2006-01-02T15:04:05.000Z07:00"

var dateTimeParseLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type DateTime struct {
	time.Time
}

func NewDateTime(t time.Time) DateTime {
	return DateTime{Time: t}
}

func NewDateTimePtr(t time.Time) *DateTime {
	d := NewDateTime(t)
	return &d
}

func (d DateTime) String() string {
	return d.UTC().Format(dateTimeLayout)
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *DateTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	value := strings.Trim(string(data), `"`)
	if value == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := ParseDateTime(value)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ParseDateTime parses the date time formats OpenMRS uses in responses and system settings
func ParseDateTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateTimeParseLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date time %q", value)
}

type Ref struct {
	UUID    string `json:"uuid"`
	Display string `json:"display,omitempty"`
}

type Visit struct {
	UUID          string    `json:"uuid"`
	Display       string    `json:"display,omitempty"`
	Patient       *Ref      `json:"patient,omitempty"`
	VisitType     *Ref      `json:"visitType,omitempty"`
	Location      *Ref      `json:"location,omitempty"`
	StartDatetime *DateTime `json:"startDatetime,omitempty"`
	StopDatetime  *DateTime `json:"stopDatetime,omitempty"`
}

// IsActive returns true if the visit has not been ended
func (v Visit) IsActive() bool {
	return v.StopDatetime == nil || v.StopDatetime.IsZero()
}

type NewVisit struct {
	Patient       string   `json:"patient"`
	VisitType     string   `json:"visitType"`
	StartDatetime DateTime `json:"startDatetime"`
	Location      string   `json:"location,omitempty"`
}

type VisitStop struct {
	StopDatetime DateTime `json:"stopDatetime"`
}

type Obs struct {
	Concept string  `json:"concept"`
	Value   float64 `json:"value"`
}

type NewEncounter struct {
	Patient           string   `json:"patient"`
	EncounterType     string   `json:"encounterType"`
	EncounterDatetime DateTime `json:"encounterDatetime"`
	Location          string   `json:"location,omitempty"`
	Visit             string   `json:"visit"`
	Obs               []Obs    `json:"obs"`
}

type Encounter struct {
	UUID              string    `json:"uuid"`
	Display           string    `json:"display,omitempty"`
	EncounterDatetime *DateTime `json:"encounterDatetime,omitempty"`
	Visit             *Ref      `json:"visit,omitempty"`
	Obs               []Ref     `json:"obs,omitempty"`
}

type Patient struct {
	UUID    string `json:"uuid"`
	Display string `json:"display,omitempty"`
	Person  Person `json:"person"`
}

type Person struct {
	UUID          string       `json:"uuid,omitempty"`
	Gender        string       `json:"gender,omitempty"`
	Birthdate     string       `json:"birthdate,omitempty"`
	PreferredName *PersonName  `json:"preferredName,omitempty"`
	Names         []PersonName `json:"names,omitempty"`
}

type PersonName struct {
	GivenName  string `json:"givenName,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
}

func (p Patient) name() PersonName {
	if len(p.Person.Names) > 0 {
		return p.Person.Names[0]
	}
	if p.Person.PreferredName != nil {
		return *p.Person.PreferredName
	}
	return PersonName{}
}

func (p Patient) GivenName() string {
	return p.name().GivenName
}

func (p Patient) FamilyName() string {
	return p.name().FamilyName
}

// DisplayName returns the display provided by the server or the full name of the patient
func (p Patient) DisplayName() string {
	if p.Display != "" {
		return p.Display
	}
	name := p.name()
	return strings.TrimSpace(name.GivenName + " " + name.FamilyName)
}

type Location struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type SystemSetting struct {
	UUID     string `json:"uuid,omitempty"`
	Property string `json:"property,omitempty"`
	Value    string `json:"value"`
}

type Results[T any] struct {
	Results []T `json:"results"`
}

type sessionResponse struct {
	SessionID     string `json:"sessionId"`
	Authenticated *bool  `json:"authenticated"`
}
