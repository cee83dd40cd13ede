package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tidepool-org/vitals-bridge/observations"
	"github.com/tidepool-org/vitals-bridge/openmrs"
)

const closeVisitTimeout = 10 * time.Second

// Sleeper waits for the duration or until the context is done
type Sleeper func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Submitter interface {
	Submit(ctx context.Context, credentials openmrs.Credentials, patientUUID string, record observations.MeasurementRecord) (*Result, error)
}

// Orchestrator records measurements as a visit with a single encounter. Active visits of the patient
// are closed first, because OpenMRS rejects visits which overlap an existing visit.
type Orchestrator struct {
	config  Config
	clients openmrs.ClientProvider
	guard   Guard
	sleep   Sleeper
	logger  *zap.SugaredLogger
}

var _ Submitter = &Orchestrator{}

type Option func(*Orchestrator)

// WithSleeper replaces the function used for waiting between retries
func WithSleeper(sleeper Sleeper) Option {
	return func(o *Orchestrator) {
		o.sleep = sleeper
	}
}

func NewOrchestrator(config Config, clients openmrs.ClientProvider, guard Guard, logger *zap.SugaredLogger, opts ...Option) *Orchestrator {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultMaxDelay
	}

	o := &Orchestrator{
		config:  config,
		clients: clients,
		guard:   guard,
		sleep:   sleep,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Submit(ctx context.Context, credentials openmrs.Credentials, patientUUID string, record observations.MeasurementRecord) (*Result, error) {
	if err := ValidatePatientUUID(patientUUID); err != nil {
		return nil, err
	}

	s := &submission{
		config:      o.config,
		sleep:       o.sleep,
		patientUUID: patientUUID,
		location:    credentials.Location(),
		result: &Result{
			SubmissionID: uuid.NewString(),
			PatientUUID:  patientUUID,
			Record:       record,
		},
	}
	s.logger = o.logger.With("submissionId", s.result.SubmissionID, "patientUuid", patientUUID)

	// The guard is only taken when there is something to record
	s.transition(StateBuildingObservations)
	if err := s.buildObservations(); err != nil {
		s.transition(StateFailed)
		return nil, err
	}

	release, err := o.guard.Acquire(ctx, guardKey(credentials, patientUUID))
	if errors.Is(err, ErrAlreadySending) {
		o.logger.Infow("submission is already in progress", "patientUuid", patientUUID)
		return nil, newError(CategoryAlreadySending, patientUUID, err)
	} else if err != nil {
		return nil, newError(CategoryNetwork, patientUUID, err)
	}
	defer release()

	s.api, err = o.clients.ClientFor(credentials)
	if err != nil {
		return nil, newError(CategoryInvalidRequest, patientUUID, err)
	}

	return s.run(ctx)
}

// ValidatePatientUUID returns an invalid request error if the patient uuid is malformed
func ValidatePatientUUID(patientUUID string) error {
	if _, err := uuid.Parse(patientUUID); err != nil {
		return newError(CategoryInvalidRequest, patientUUID, fmt.Errorf("%w: %v", ErrInvalidPatient, err))
	}
	return nil
}

// submission is the state of a single call to Submit
type submission struct {
	config Config
	api    openmrs.API
	sleep  Sleeper
	logger *zap.SugaredLogger

	patientUUID string
	location    string
	result      *Result

	state             State
	failures          int
	transientFailures int
}

func (s *submission) run(ctx context.Context) (*Result, error) {
	for {
		var err error

		switch s.state {
		case StateResolvingTime:
			s.result.ReferenceTime = s.api.ResolveReferenceTime(ctx)
			s.transition(StateClosingPriorVisits)
		case StateClosingPriorVisits:
			err = s.closePriorVisits(ctx)
		case StateCreatingVisit:
			err = s.createVisit(ctx)
		case StateCreatingEncounter:
			err = s.createEncounter(ctx)
		case StateClosingVisit:
			err = s.closeVisit(ctx)
		case StateDone:
			s.result.Attempts = s.failures + 1
			s.logger.Infow("measurements recorded",
				"visitUuid", s.result.Visit.UUID,
				"encounterUuid", s.result.Encounter.UUID,
				"observations", len(s.result.Observations),
				"attempt", s.result.Attempts,
			)
			return s.result, nil
		default:
			err = newError(CategoryNetwork, s.patientUUID, fmt.Errorf("unexpected submission state %v", s.state))
		}

		if err != nil {
			s.transition(StateFailed)
			s.logger.Warnw("unable to record measurements", "attempt", s.failures+1, zap.Error(err))
			return nil, err
		}
	}
}

func (s *submission) transition(state State) {
	s.logger.Debugw("submission state changed", "from", s.state.String(), "state", state.String())
	s.state = state
	s.result.States = append(s.result.States, state)
}

func (s *submission) buildObservations() error {
	s.result.Observations = observations.Build(s.result.Record)
	if len(s.result.Observations) == 0 {
		return newError(CategoryNoData, s.patientUUID, ErrNoValidMeasurements)
	}
	if unmapped := s.result.Record.Unmapped(); len(unmapped) > 0 {
		s.logger.Infow("measurements are not recorded in openmrs", "fields", unmapped)
	}

	s.transition(StateResolvingTime)
	return nil
}

func (s *submission) closePriorVisits(ctx context.Context) error {
	if err := s.api.CloseActiveVisits(ctx, s.patientUUID, s.result.ReferenceTime); err != nil {
		return s.retry(ctx, err)
	}
	s.transition(StateCreatingVisit)
	return nil
}

func (s *submission) createVisit(ctx context.Context) error {
	visit, err := s.api.CreateVisit(ctx, openmrs.NewVisit{
		Patient:       s.patientUUID,
		VisitType:     s.config.VisitTypeUUID,
		StartDatetime: openmrs.NewDateTime(s.result.ReferenceTime),
		Location:      s.location,
	})
	if err != nil {
		return s.retry(ctx, err)
	}

	s.result.Visit = visit
	s.transition(StateCreatingEncounter)
	return nil
}

func (s *submission) createEncounter(ctx context.Context) error {
	encounter, err := s.api.CreateEncounter(ctx, openmrs.NewEncounter{
		Patient:           s.patientUUID,
		EncounterType:     s.config.EncounterTypeUUID,
		EncounterDatetime: openmrs.NewDateTime(s.result.ReferenceTime),
		Location:          s.location,
		Visit:             s.result.Visit.UUID,
		Obs:               observations.ToObs(s.result.Observations),
	})
	if err != nil {
		// The visit is closed so it doesn't overlap the visit of the next submission
		if _, closeErr := s.closeVisitDetached(ctx); closeErr != nil {
			s.logger.Warnw("unable to close visit after failed encounter", "visitUuid", s.result.Visit.UUID, zap.Error(closeErr))
		}
		return newError(CategoryEncounter, s.patientUUID, fmt.Errorf("%w: %w", ErrEncounterCreation, err))
	}

	s.result.Encounter = encounter
	s.transition(StateClosingVisit)
	return nil
}

func (s *submission) closeVisit(ctx context.Context) error {
	closed, err := s.closeVisitDetached(ctx)
	if err != nil {
		return s.retry(ctx, err)
	}

	s.result.ClosedVisit = closed
	s.transition(StateDone)
	return nil
}

// closeVisitDetached closes the new visit even if the submission was cancelled in the meantime,
// otherwise it would be left open and overlap the visit of the next submission
func (s *submission) closeVisitDetached(ctx context.Context) (*openmrs.Visit, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeVisitTimeout)
	defer cancel()

	return s.api.CloseVisit(ctx, s.result.Visit.UUID, s.stopDatetime())
}

func (s *submission) stopDatetime() time.Time {
	return s.result.ReferenceTime.Add(s.config.VisitEpsilon)
}

// retry decides whether a failed step is attempted again. An overlapping visit restarts the
// submission from closing the active visits without a delay. Other transient failures repeat the
// failed step after an exponential backoff. A nil error is returned when the submission continues.
func (s *submission) retry(ctx context.Context, err error) error {
	step := s.state
	s.failures++

	if ctxErr := ctx.Err(); ctxErr != nil {
		return newError(CategoryNetwork, s.patientUUID, err)
	}

	kind := openmrs.KindOf(err)
	switch kind {
	case openmrs.KindAuthentication:
		return newError(CategoryAuthentication, s.patientUUID, err)
	case openmrs.KindNotFound:
		return newError(CategoryRejected, s.patientUUID, err)
	}

	overlap := kind == openmrs.KindVisitOverlap && step == StateCreatingVisit
	if s.failures >= s.config.MaxAttempts {
		if overlap {
			return newError(CategoryOverlap, s.patientUUID, err)
		}
		return newError(CategoryNetwork, s.patientUUID, err)
	}

	s.transition(StateRetrying)
	s.logger.Infow("retrying submission", "step", step.String(), "attempt", s.failures+1, "kind", kind.String(), zap.Error(err))

	if overlap {
		s.transition(StateClosingPriorVisits)
		return nil
	}

	s.transientFailures++
	delay := backoff(s.config.BaseDelay, s.config.MaxDelay, s.transientFailures)
	if err := s.sleep(ctx, delay); err != nil {
		return newError(CategoryNetwork, s.patientUUID, err)
	}

	s.transition(step)
	return nil
}

// backoff doubles the base delay for every failure after the first one, up to the max delay
func backoff(base, maxDelay time.Duration, failures int) time.Duration {
	delay := base
	for i := 1; i < failures && delay < maxDelay; i++ {
		delay *= 2
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}
