package app

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tidepool-org/vitals-bridge/observations"
	"github.com/tidepool-org/vitals-bridge/openmrs"
	"github.com/tidepool-org/vitals-bridge/scanner"
	"github.com/tidepool-org/vitals-bridge/submission"
)

const maxBodySize = 1 << 20

// Handler exposes the bridge over HTTP. All requests use the configured OpenMRS credentials.
type Handler struct {
	credentials openmrs.Credentials
	registry    *openmrs.Registry
	submitter   submission.Submitter
	relay       *scanner.Relay
	logger      *zap.SugaredLogger
}

func NewHandler(credentials openmrs.Credentials, registry *openmrs.Registry, submitter submission.Submitter, relay *scanner.Relay, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		credentials: credentials,
		registry:    registry,
		submitter:   submitter,
		relay:       relay,
		logger:      logger,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", h.status)
	mux.HandleFunc("GET /connection", h.testConnection)
	mux.HandleFunc("GET /locations", h.listLocations)
	mux.HandleFunc("GET /patients", h.listPatients)
	mux.HandleFunc("GET /patients/{uuid}", h.getPatient)
	mux.HandleFunc("POST /patients/{uuid}/measurements", h.submitMeasurements)
	mux.HandleFunc("POST /patients/{uuid}/measurements/mock", h.submitMockMeasurements)
	mux.HandleFunc("POST /patients/{uuid}/scans", h.scan)
	return mux
}

type ErrorResponse struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

type PatientResponse struct {
	UUID       string `json:"uuid"`
	Display    string `json:"display"`
	GivenName  string `json:"givenName,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
	Gender     string `json:"gender,omitempty"`
	Birthdate  string `json:"birthdate,omitempty"`
}

func NewPatientResponse(patient openmrs.Patient) PatientResponse {
	return PatientResponse{
		UUID:       patient.UUID,
		Display:    patient.DisplayName(),
		GivenName:  patient.GivenName(),
		FamilyName: patient.FamilyName(),
		Gender:     patient.Person.Gender,
		Birthdate:  patient.Person.Birthdate,
	}
}

type SubmissionResponse struct {
	SubmissionID string                     `json:"submissionId"`
	Message      string                     `json:"message"`
	Visit        *openmrs.Visit             `json:"visit"`
	Encounter    *openmrs.Encounter         `json:"encounter"`
	Observations []observations.Observation `json:"observations"`
	Unmapped     []string                   `json:"unmapped,omitempty"`
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) testConnection(w http.ResponseWriter, r *http.Request) {
	client, err := h.registry.Client(h.credentials)
	if err != nil {
		h.writeOpenMRSError(w, err)
		return
	}
	if err := client.TestConnection(r.Context()); err != nil {
		h.writeOpenMRSError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// listLocations returns the locations patients can be selected from
func (h *Handler) listLocations(w http.ResponseWriter, _ *http.Request) {
	client, err := h.registry.Client(h.credentials)
	if err != nil {
		h.writeOpenMRSError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, openmrs.Results[openmrs.Location]{Results: client.GetLocations()})
}

// listPatients returns the patients at a location, or the known patients of the server preset when
// no location is requested
func (h *Handler) listPatients(w http.ResponseWriter, r *http.Request) {
	client, err := h.registry.Client(h.credentials)
	if err != nil {
		h.writeOpenMRSError(w, err)
		return
	}

	var patients []openmrs.Patient
	if location := r.URL.Query().Get("location"); location != "" {
		patients, err = client.GetPatientsByLocation(r.Context(), location)
	} else if server, ok := openmrs.LookupServer(h.credentials.BaseURL); ok {
		patients, err = client.GetPatients(r.Context(), server.PatientUUIDs)
	} else {
		patients, err = client.GetPatientsByLocation(r.Context(), h.credentials.Location())
	}
	if err != nil {
		h.writeOpenMRSError(w, err)
		return
	}

	response := make([]PatientResponse, 0, len(patients))
	for _, patient := range patients {
		response = append(response, NewPatientResponse(patient))
	}
	h.writeJSON(w, http.StatusOK, openmrs.Results[PatientResponse]{Results: response})
}

func (h *Handler) getPatient(w http.ResponseWriter, r *http.Request) {
	client, err := h.registry.Client(h.credentials)
	if err != nil {
		h.writeOpenMRSError(w, err)
		return
	}

	patient, err := client.GetPatient(r.Context(), r.PathValue("uuid"))
	if err != nil {
		h.writeOpenMRSError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, NewPatientResponse(*patient))
}

func (h *Handler) submitMeasurements(w http.ResponseWriter, r *http.Request) {
	record := observations.MeasurementRecord{}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err == nil {
		err = json.Unmarshal(body, &record)
	}
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Category: string(submission.CategoryInvalidRequest),
			Message:  "The measurement could not be read.",
		})
		return
	}
	if record.CapturedAt.IsZero() {
		record.CapturedAt = time.Now()
	}

	result, err := h.submitter.Submit(r.Context(), h.credentials, r.PathValue("uuid"), record)
	h.writeSubmissionResult(w, result, err)
}

func (h *Handler) submitMockMeasurements(w http.ResponseWriter, r *http.Request) {
	result, err := h.submitter.Submit(r.Context(), h.credentials, r.PathValue("uuid"), observations.MockRecord(time.Now()))
	h.writeSubmissionResult(w, result, err)
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	result, err := h.relay.Run(r.Context(), h.credentials, r.PathValue("uuid"))

	var initErr *scanner.InitializationError
	if errors.As(err, &initErr) || errors.Is(err, scanner.ErrMeasurementAborted) {
		h.logger.Warnw("scan failed", "patientUuid", r.PathValue("uuid"), zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Category: "scanner",
			Message:  "The scanner could not take a measurement. Please try again.",
		})
		return
	}

	h.writeSubmissionResult(w, result, err)
}

func (h *Handler) writeSubmissionResult(w http.ResponseWriter, result *submission.Result, err error) {
	if err != nil {
		category := submission.CategoryOf(err)
		message := userMessage(err)
		h.logger.Warnw("measurements were not recorded", "category", category, zap.Error(err))
		h.writeJSON(w, statusForCategory(category), ErrorResponse{
			Category: string(category),
			Message:  message,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, SubmissionResponse{
		SubmissionID: result.SubmissionID,
		Message:      result.Summary(),
		Visit:        result.Visit,
		Encounter:    result.Encounter,
		Observations: result.Observations,
		Unmapped:     result.Record.Unmapped(),
	})
}

func (h *Handler) writeOpenMRSError(w http.ResponseWriter, err error) {
	h.logger.Warnw("openmrs request failed", zap.Error(err))

	status := http.StatusBadGateway
	message := "Could not connect to OpenMRS. Please check your connection."
	switch openmrs.KindOf(err) {
	case openmrs.KindAuthentication:
		status = http.StatusUnauthorized
		message = "Could not connect to OpenMRS. Please check your credentials."
	case openmrs.KindNotFound:
		status = http.StatusNotFound
		message = "The patient could not be found."
	}
	h.writeJSON(w, status, ErrorResponse{Category: openmrs.KindOf(err).String(), Message: message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Errorw("unable to write response", zap.Error(err))
	}
}

func userMessage(err error) string {
	var submissionErr *submission.Error
	if errors.As(err, &submissionErr) {
		return submissionErr.UserMessage()
	}
	return "Failed to send measurement to OpenMRS. Please try again."
}

func statusForCategory(category submission.Category) int {
	switch category {
	case submission.CategoryAlreadySending:
		return http.StatusConflict
	case submission.CategoryNoData, submission.CategoryInvalidRequest:
		return http.StatusUnprocessableEntity
	case submission.CategoryAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}
