package observations

import (
	"math"

	"github.com/tidepool-org/vitals-bridge/openmrs"
)

// CIEL concepts the vitals are recorded as
const (
	HeartRateConcept     = "5087AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	SystolicBPConcept    = "5085AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	DiastolicBPConcept   = "5086AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	BreathingRateConcept = "5242AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
)

type Mapping struct {
	Name    string
	Label   string
	Unit    string
	Concept string
	Min     float64
	Max     float64
	value   func(MeasurementRecord) *float64
}

// Mappings is ordered, observations are built in the same order
var Mappings = []Mapping{
	{
		Name:    "heart_rate_bpm",
		Label:   "Heart Rate",
		Unit:    "BPM",
		Concept: HeartRateConcept,
		Min:     40,
		Max:     200,
		value:   func(m MeasurementRecord) *float64 { return m.HeartRateBpm },
	},
	{
		Name:    "systolic_mmhg",
		Label:   "Systolic Blood Pressure",
		Unit:    "mmHg",
		Concept: SystolicBPConcept,
		Min:     70,
		Max:     250,
		value:   func(m MeasurementRecord) *float64 { return m.SystolicMmHg },
	},
	{
		Name:    "diastolic_mmhg",
		Label:   "Diastolic Blood Pressure",
		Unit:    "mmHg",
		Concept: DiastolicBPConcept,
		Min:     40,
		Max:     150,
		value:   func(m MeasurementRecord) *float64 { return m.DiastolicMmHg },
	},
	{
		Name:    "breathing_rate_bpm",
		Label:   "Breathing Rate",
		Unit:    "BPM",
		Concept: BreathingRateConcept,
		Min:     8,
		Max:     40,
		value:   func(m MeasurementRecord) *float64 { return m.BreathingRateBpm },
	},
}

// MappingFor returns the mapping of the concept
func MappingFor(concept string) (Mapping, bool) {
	for _, mapping := range Mappings {
		if mapping.Concept == concept {
			return mapping, true
		}
	}
	return Mapping{}, false
}

type Observation struct {
	Concept string  `json:"concept"`
	Value   float64 `json:"value"`

	// Clamped is set when the measured value was outside of the accepted range
	Clamped bool `json:"clamped,omitempty"`
}

// Build maps the usable values of the record to observations. Values are clamped to the accepted
// range of the concept and rounded to the nearest integer. An empty slice is returned when the
// record has no usable values.
func Build(record MeasurementRecord) []Observation {
	result := make([]Observation, 0, len(Mappings))
	for _, mapping := range Mappings {
		value := mapping.value(record)
		if !usable(value) {
			continue
		}

		clamped := math.Min(math.Max(*value, mapping.Min), mapping.Max)
		result = append(result, Observation{
			Concept: mapping.Concept,
			Value:   math.Round(clamped),
			Clamped: clamped != *value,
		})
	}
	return result
}

// ToObs converts the observations to the encounter payload
func ToObs(observations []Observation) []openmrs.Obs {
	obs := make([]openmrs.Obs, 0, len(observations))
	for _, o := range observations {
		obs = append(obs, openmrs.Obs{Concept: o.Concept, Value: o.Value})
	}
	return obs
}
