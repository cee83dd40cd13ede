package scanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/avast/retry-go"
	"go.uber.org/zap"

	"github.com/tidepool-org/vitals-bridge/forwarder"
	"github.com/tidepool-org/vitals-bridge/openmrs"
	"github.com/tidepool-org/vitals-bridge/submission"
)

var (
	ErrInvalidAPIKey      = errors.New("scanner api key is invalid")
	ErrMeasurementAborted = errors.New("measurement ended without a final result")
)

type InitializationError struct {
	Result InitializationResult
	Err    error
}

func (e *InitializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scanner initialization failed (%v): %v", e.Result, e.Err)
	}
	return fmt.Sprintf("scanner initialization failed (%v)", e.Result)
}

func (e *InitializationError) Unwrap() error {
	if e.Result == InitializationInvalidAPIKey {
		return ErrInvalidAPIKey
	}
	return e.Err
}

func isConnectionError(err error) bool {
	var initErr *InitializationError
	return errors.As(err, &initErr) && initErr.Result == InitializationConnectionError
}

// Relay initializes the scanner, waits for a single finalized measurement and records it in
// OpenMRS. The measurement is also forwarded to the companion server, failures to forward are only
// logged.
type Relay struct {
	config    Config
	device    Device
	submitter submission.Submitter
	forwarder forwarder.Client
	logger    *zap.SugaredLogger
}

func NewRelay(config Config, device Device, submitter submission.Submitter, forwarder forwarder.Client, logger *zap.SugaredLogger) *Relay {
	return &Relay{
		config:    config,
		device:    device,
		submitter: submitter,
		forwarder: forwarder,
		logger:    logger,
	}
}

func (r *Relay) Run(ctx context.Context, credentials openmrs.Credentials, patientUUID string) (*submission.Result, error) {
	// A measurement for an unknown patient is never taken or forwarded
	if err := submission.ValidatePatientUUID(patientUUID); err != nil {
		return nil, err
	}

	if err := r.initialize(ctx); err != nil {
		return nil, err
	}

	results, err := r.measure(ctx)
	if err != nil {
		return nil, err
	}

	record := results.Record()
	if err := r.forwarder.Forward(ctx, record); err != nil {
		r.logger.Warnw("unable to forward measurements", "patientUuid", patientUUID, zap.Error(err))
	}

	return r.submitter.Submit(ctx, credentials, patientUUID, record)
}

func (r *Relay) initialize(ctx context.Context) error {
	settings := Settings{MeasurementPreset: r.config.MeasurementPreset}
	attempts := r.config.InitAttempts
	if attempts == 0 {
		attempts = 1
	}

	return retry.Do(
		func() error {
			result, err := r.device.Initialize(ctx, r.config.APIKey, r.config.UserID, settings)
			if err != nil {
				return &InitializationError{Result: InitializationInternalError, Err: err}
			}
			if result != InitializationOK {
				return &InitializationError{Result: result}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(r.config.InitDelay),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(isConnectionError),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Infow("scanner initialization attempt failed", "attempt", n+1, zap.Error(err))
		}),
	)
}

// measure returns the first final result of the measurement
func (r *Relay) measure(ctx context.Context) (Results, error) {
	if r.config.MeasurementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.MeasurementTimeout)
		defer cancel()
	}

	ch, err := r.device.Subscribe(ctx)
	if err != nil {
		return Results{}, fmt.Errorf("unable to subscribe to measurement results: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return Results{}, ctx.Err()
		case results, ok := <-ch:
			if !ok {
				return Results{}, ErrMeasurementAborted
			}
			if results.Final {
				return results, nil
			}
		}
	}
}
