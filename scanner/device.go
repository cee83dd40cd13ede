package scanner

import (
	"context"
	"time"

	"github.com/tidepool-org/vitals-bridge/observations"
)

type InitializationResult int

const (
	InitializationOK InitializationResult = iota
	InitializationInvalidAPIKey
	InitializationConnectionError
	InitializationInternalError
)

func (r InitializationResult) String() string {
	switch r {
	case InitializationOK:
		return "ok"
	case InitializationInvalidAPIKey:
		return "invalid api key"
	case InitializationConnectionError:
		return "connection error"
	default:
		return "internal error"
	}
}

type MeasurementPreset string

const (
	PresetThirtySecondsUnvalidated     MeasurementPreset = "thirty_seconds_unvalidated"
	PresetFortyFiveSecondsUnvalidated  MeasurementPreset = "forty_five_seconds_unvalidated"
	PresetOneMinuteHeartRateHrvBreathe MeasurementPreset = "one_minute_hr_hrv_br"
	PresetOneMinuteAllMetrics          MeasurementPreset = "one_minute_all_metrics"
)

type Settings struct {
	MeasurementPreset MeasurementPreset
}

// Results of a measurement. Intermediate results are published while measuring, the last result of
// a measurement is final.
type Results struct {
	HeartRateBpm     *float64
	HrvSdnnMs        *float64
	BreathingRateBpm *float64
	SystolicMmHg     *float64
	DiastolicMmHg    *float64
	Final            bool
	CapturedAt       time.Time
}

func (r Results) Record() observations.MeasurementRecord {
	return observations.MeasurementRecord{
		HeartRateBpm:     r.HeartRateBpm,
		HrvSdnnMs:        r.HrvSdnnMs,
		BreathingRateBpm: r.BreathingRateBpm,
		SystolicMmHg:     r.SystolicMmHg,
		DiastolicMmHg:    r.DiastolicMmHg,
		CapturedAt:       r.CapturedAt,
	}
}

// Device is the boundary of the scanner SDK
type Device interface {
	Initialize(ctx context.Context, apiKey, userID string, settings Settings) (InitializationResult, error)
	// Subscribe returns the results of the next measurement. The channel is closed when the
	// measurement ends or the context is done.
	Subscribe(ctx context.Context) (<-chan Results, error)
}
