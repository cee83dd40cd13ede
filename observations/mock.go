package observations

import (
	"time"

	"github.com/tidepool-org/vitals-bridge/types"
)

// MockRecord returns the record used for exercising the submission without a scanner
func MockRecord(capturedAt time.Time) MeasurementRecord {
	return MeasurementRecord{
		HeartRateBpm:     types.Ptr(72.0),
		HrvSdnnMs:        types.Ptr(42.5),
		BreathingRateBpm: types.Ptr(16.0),
		SystolicMmHg:     types.Ptr(118.0),
		DiastolicMmHg:    types.Ptr(78.0),
		CapturedAt:       capturedAt,
	}
}
