package observations

import (
	"math"
	"time"
)

// MeasurementRecord is a finalized scanner result. Fields the scanner could not measure are nil.
type MeasurementRecord struct {
	HeartRateBpm     *float64  `json:"heart_rate_bpm,omitempty"`
	HrvSdnnMs        *float64  `json:"hrv_sdnn_ms,omitempty"`
	BreathingRateBpm *float64  `json:"breathing_rate_bpm,omitempty"`
	SystolicMmHg     *float64  `json:"systolic_mmhg,omitempty"`
	DiastolicMmHg    *float64  `json:"diastolic_mmhg,omitempty"`
	CapturedAt       time.Time `json:"captured_at"`
}

// Unmapped returns the names of the fields which carry a usable value but are not recorded in
// OpenMRS because no concept is mapped for them
func (m MeasurementRecord) Unmapped() []string {
	var unmapped []string
	if usable(m.HrvSdnnMs) {
		unmapped = append(unmapped, "hrv_sdnn_ms")
	}
	return unmapped
}

func usable(value *float64) bool {
	if value == nil {
		return false
	}
	v := *value
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
