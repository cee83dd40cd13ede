package forwarder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tidepool-org/vitals-bridge/observations"
)

const measurementsPath = "/shenai/measurements"

var Module = fx.Provide(NewConfig, NewClient)

// Client forwards measurements to the companion server
type Client interface {
	Forward(ctx context.Context, record observations.MeasurementRecord) error
}

type Config struct {
	URL     string        `envconfig:"VITALS_FORWARDER_URL"`
	Timeout time.Duration `envconfig:"VITALS_FORWARDER_TIMEOUT" default:"10s"`
}

func NewConfig() (Config, error) {
	cfg := Config{}
	err := envconfig.Process("", &cfg)
	return cfg, err
}

func NewClient(config Config, logger *zap.SugaredLogger) (Client, error) {
	if config.URL == "" {
		logger.Info("measurement forwarding is disabled")
		return &disabled{
			logger: logger,
		}, nil
	}

	restyClient := resty.New().
		SetBaseURL(strings.TrimSuffix(config.URL, "/")).
		SetTimeout(config.Timeout).
		SetHeader("Content-Type", "application/json")

	return &client{
		restyClient: restyClient,
		logger:      logger,
	}, nil
}

type BloodPressure struct {
	Systolic  *float64 `json:"systolic"`
	Diastolic *float64 `json:"diastolic"`
}

type Payload struct {
	Timestamp        int64         `json:"timestamp"`
	HrvSdnnMs        *float64      `json:"hrv_sdnn_ms"`
	HeartRateBpm     *float64      `json:"heart_rate_bpm"`
	BreathingRateBpm *float64      `json:"breathing_rate_bpm,omitempty"`
	BloodPressure    BloodPressure `json:"blood_pressure_mmhg"`
}

// NewPayload returns the payload for the record. The timestamp is in milliseconds since the epoch.
func NewPayload(record observations.MeasurementRecord, now time.Time) Payload {
	capturedAt := record.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = now
	}

	return Payload{
		Timestamp:        capturedAt.UnixMilli(),
		HrvSdnnMs:        record.HrvSdnnMs,
		HeartRateBpm:     record.HeartRateBpm,
		BreathingRateBpm: record.BreathingRateBpm,
		BloodPressure: BloodPressure{
			Systolic:  record.SystolicMmHg,
			Diastolic: record.DiastolicMmHg,
		},
	}
}

type client struct {
	restyClient *resty.Client
	logger      *zap.SugaredLogger
}

func (c *client) Forward(ctx context.Context, record observations.MeasurementRecord) error {
	resp, err := c.restyClient.R().
		SetContext(ctx).
		SetBody(NewPayload(record, time.Now())).
		Post(measurementsPath)
	if err != nil {
		return fmt.Errorf("unable to forward measurements: %w", err)
	}
	if resp.IsError() {
		err := fmt.Errorf("unexpected response from companion server: %v %v", resp.StatusCode(), strings.TrimSpace(resp.String()))
		c.logger.Errorw(err.Error())
		return err
	}

	c.logger.Debugw("forwarded measurements", "status", resp.StatusCode())
	return nil
}

type disabled struct {
	logger *zap.SugaredLogger
}

func (d *disabled) Forward(_ context.Context, _ observations.MeasurementRecord) error {
	d.logger.Debugw("skipping measurement forwarding, because client is disabled")
	return nil
}
