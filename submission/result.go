package submission

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidepool-org/vitals-bridge/observations"
	"github.com/tidepool-org/vitals-bridge/openmrs"
)

type Result struct {
	SubmissionID  string                         `json:"submissionId"`
	PatientUUID   string                         `json:"patientUuid"`
	Visit         *openmrs.Visit                 `json:"visit"`
	Encounter     *openmrs.Encounter             `json:"encounter"`
	ClosedVisit   *openmrs.Visit                 `json:"closedVisit,omitempty"`
	Observations  []observations.Observation     `json:"observations"`
	Record        observations.MeasurementRecord `json:"record"`
	ReferenceTime time.Time                      `json:"referenceTime"`
	Attempts      int                            `json:"attempts"`
	States        []State                        `json:"-"`
}

// Summary returns the confirmation shown to the clinician after a successful submission. It lists
// the values as they were recorded, after clamping and rounding.
func (r *Result) Summary() string {
	var b strings.Builder
	b.WriteString("Measurement data sent to OpenMRS successfully!")

	recorded := make(map[string]observations.Observation, len(r.Observations))
	for _, o := range r.Observations {
		recorded[o.Concept] = o
	}
	systolic, hasSystolic := recorded[observations.SystolicBPConcept]
	diastolic, hasDiastolic := recorded[observations.DiastolicBPConcept]

	var lines []string
	adjusted := false
	for _, o := range r.Observations {
		adjusted = adjusted || o.Clamped

		switch {
		case o.Concept == observations.SystolicBPConcept && hasDiastolic:
			lines = append(lines, fmt.Sprintf("Blood Pressure: %s/%s mmHg", formatValue(systolic.Value), formatValue(diastolic.Value)))
		case o.Concept == observations.DiastolicBPConcept && hasSystolic:
			continue
		default:
			if mapping, ok := observations.MappingFor(o.Concept); ok {
				lines = append(lines, fmt.Sprintf("%s: %s %s", mapping.Label, formatValue(o.Value), mapping.Unit))
			}
		}
	}
	if len(r.Record.Unmapped()) > 0 {
		lines = append(lines, fmt.Sprintf("HRV SDNN: %s ms (not recorded in OpenMRS)", formatValue(*r.Record.HrvSdnnMs)))
	}
	if adjusted {
		lines = append(lines, "Some values were outside of the accepted range and were adjusted.")
	}

	if len(lines) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(lines, "\n"))
	}
	return b.String()
}

func formatValue(value float64) string {
	return fmt.Sprintf("%g", value)
}
