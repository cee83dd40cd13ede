package test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tidepool-org/vitals-bridge/openmrs"
)

const (
	BasePath = "/openmrs"
	apiPath  = BasePath + "/ws/rest/v1"

	Username = "admin"
	Password = "Admin123"

	overlapCode = "Visit.visitCannotOverlapAnotherVisitOfTheSamePatient"
)

type Request struct {
	Method string
	Path   string
	Body   []byte
}

func (r Request) String() string {
	return r.Method + " " + r.Path
}

// Server is an in-memory OpenMRS REST API. It validates visits for overlaps like OpenMRS does and
// supports injecting failures.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	sessionID  string
	serverTime *time.Time
	visits     []*openmrs.Visit
	encounters []openmrs.NewEncounter
	patients   map[string]openmrs.Patient
	requests   []Request
	failures   map[string][]int
	expire     int
	overlaps   int
	gates      map[string]*gate
}

type gate struct {
	waiting int
	open    chan struct{}
}

func NewServer() *Server {
	s := &Server{
		patients: make(map[string]openmrs.Patient),
		failures: make(map[string][]int),
		gates:    make(map[string]*gate),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+apiPath+"/session", s.handleSession)
	mux.HandleFunc("GET "+apiPath+"/systemsetting", s.authenticated(s.handleSystemSetting))
	mux.HandleFunc("GET "+apiPath+"/visit", s.authenticated(s.handleListVisits))
	mux.HandleFunc("POST "+apiPath+"/visit", s.authenticated(s.handleCreateVisit))
	mux.HandleFunc("POST "+apiPath+"/visit/{uuid}", s.authenticated(s.handleUpdateVisit))
	mux.HandleFunc("POST "+apiPath+"/encounter", s.authenticated(s.handleCreateEncounter))
	mux.HandleFunc("GET "+apiPath+"/patient/{uuid}", s.authenticated(s.handleGetPatient))
	mux.HandleFunc("GET "+apiPath+"/patient", s.authenticated(s.handleListPatients))

	s.Server = httptest.NewServer(s.record(mux))
	return s
}

// Credentials returns valid credentials for the server
func (s *Server) Credentials() openmrs.Credentials {
	return openmrs.Credentials{
		BaseURL:      s.URL + BasePath,
		Username:     Username,
		Password:     Password,
		LocationUUID: "8639ead4-ad6c-419f-9944-7d92ff32dcac",
	}
}

func (s *Server) SetServerTime(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serverTime = &t
}

func (s *Server) AddPatient(patient openmrs.Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients[patient.UUID] = patient
}

// AddVisit stores a visit as if it was created by another client
func (s *Server) AddVisit(patientUUID string, start time.Time, stop *time.Time) *openmrs.Visit {
	s.mu.Lock()
	defer s.mu.Unlock()

	visit := &openmrs.Visit{
		UUID:          uuid.NewString(),
		Patient:       &openmrs.Ref{UUID: patientUUID},
		StartDatetime: openmrs.NewDateTimePtr(start),
	}
	if stop != nil {
		visit.StopDatetime = openmrs.NewDateTimePtr(*stop)
	}
	s.visits = append(s.visits, visit)
	return visit
}

// FailNext makes the next requests matching the method and path (e.g. "POST /visit") fail with the
// given status codes, one request per status code
func (s *Server) FailNext(op string, statusCodes ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], statusCodes...)
}

// OverlapNextVisit rejects the next visit creation as if another client created an overlapping
// visit in the meantime
func (s *Server) OverlapNextVisit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlaps++
}

// ExpireSession rejects the current session id the given number of times, forcing clients to
// establish a new session
func (s *Server) ExpireSession(times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire = times
}

// DropSession forgets the current session id as if it timed out on the server
func (s *Server) DropSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = ""
}

// HoldUntil delays the next requests matching the method and path until the given number of them
// arrived, so they are handled concurrently
func (s *Server) HoldUntil(op string, requests int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gates[op] = &gate{waiting: requests, open: make(chan struct{})}
}

func (s *Server) Visits(patientUUID string) []openmrs.Visit {
	s.mu.Lock()
	defer s.mu.Unlock()

	var visits []openmrs.Visit
	for _, v := range s.visits {
		if v.Patient != nil && v.Patient.UUID == patientUUID {
			visits = append(visits, *v)
		}
	}
	return visits
}

func (s *Server) Encounters() []openmrs.NewEncounter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]openmrs.NewEncounter(nil), s.encounters...)
}

// Requests returns the received requests. Paths are relative to the REST API root.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Ops returns the received requests as "METHOD /path" strings
func (s *Server) Ops() []string {
	var ops []string
	for _, r := range s.Requests() {
		ops = append(ops, r.String())
	}
	return ops
}

func (s *Server) CountOps(op string) int {
	count := 0
	for _, o := range s.Ops() {
		if o == op {
			count++
		}
	}
	return count
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, apiPath)
		request := Request{Method: r.Method, Path: path}
		if r.Body != nil {
			body, _ := io.ReadAll(r.Body)
			request.Body = body
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.requests = append(s.requests, request)
		statusCode := s.popFailure(request.String())
		if statusCode == 0 {
			statusCode = s.popFailure(r.Method + " " + routeOf(path))
		}
		var hold chan struct{}
		if g, ok := s.gates[request.String()]; ok {
			hold = g.open
			g.waiting--
			if g.waiting <= 0 {
				close(g.open)
				delete(s.gates, request.String())
			}
		}
		s.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}

		if statusCode != 0 {
			writeError(w, statusCode, fmt.Sprintf("injected failure %d", statusCode), "")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) popFailure(op string) int {
	queue := s.failures[op]
	if len(queue) == 0 {
		return 0
	}
	s.failures[op] = queue[1:]
	return queue[0]
}

func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		cookie, err := r.Cookie("JSESSIONID")
		if err == nil {
			if cookie.Value != s.sessionID || s.expire > 0 {
				if s.expire > 0 {
					s.expire--
					s.sessionID = ""
				}
				s.mu.Unlock()
				writeError(w, http.StatusUnauthorized, "User is not logged in", "")
				return
			}
		} else if !validBasicAuth(r) {
			s.mu.Unlock()
			writeError(w, http.StatusUnauthorized, "User is not logged in", "")
			return
		}
		s.mu.Unlock()
		next(w, r)
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if !validBasicAuth(r) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"authenticated": false})
		return
	}

	s.mu.Lock()
	s.sessionID = strings.ReplaceAll(uuid.NewString(), "-", "")
	sessionID := s.sessionID
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: sessionID, Path: BasePath, HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId":     sessionID,
		"authenticated": true,
	})
}

func (s *Server) handleSystemSetting(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := []openmrs.SystemSetting{}
	if s.serverTime != nil && r.URL.Query().Get("q") == "systemDateTime" {
		results = append(results, openmrs.SystemSetting{
			Property: "systemDateTime",
			Value:    s.serverTime.UTC().Format("2006-01-02T15:04:05.000-0700"),
		})
	}
	writeJSON(w, http.StatusOK, openmrs.Results[openmrs.SystemSetting]{Results: results})
}

func (s *Server) handleListVisits(w http.ResponseWriter, r *http.Request) {
	patientUUID := r.URL.Query().Get("patient")

	visits := []openmrs.Visit{}
	for _, v := range s.Visits(patientUUID) {
		visits = append(visits, v)
	}
	writeJSON(w, http.StatusOK, openmrs.Results[openmrs.Visit]{Results: visits})
}

func (s *Server) handleCreateVisit(w http.ResponseWriter, r *http.Request) {
	payload := openmrs.NewVisit{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.overlaps > 0 {
		s.overlaps--
		writeError(w, http.StatusBadRequest, "Invalid Submission", overlapCode)
		return
	}

	for _, existing := range s.visits {
		if existing.Patient == nil || existing.Patient.UUID != payload.Patient {
			continue
		}
		if existing.IsActive() || existing.StopDatetime.After(payload.StartDatetime.Time) {
			writeError(w, http.StatusBadRequest, "Invalid Submission", overlapCode)
			return
		}
	}

	visit := &openmrs.Visit{
		UUID:          uuid.NewString(),
		Patient:       &openmrs.Ref{UUID: payload.Patient},
		VisitType:     &openmrs.Ref{UUID: payload.VisitType},
		Location:      &openmrs.Ref{UUID: payload.Location},
		StartDatetime: openmrs.NewDateTimePtr(payload.StartDatetime.Time),
	}
	s.visits = append(s.visits, visit)
	writeJSON(w, http.StatusCreated, visit)
}

func (s *Server) handleUpdateVisit(w http.ResponseWriter, r *http.Request) {
	payload := openmrs.VisitStop{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	visitUUID := r.PathValue("uuid")
	for _, visit := range s.visits {
		if visit.UUID != visitUUID {
			continue
		}
		if visit.StartDatetime != nil && payload.StopDatetime.Before(visit.StartDatetime.Time) {
			writeError(w, http.StatusBadRequest, "Invalid Submission", "Visit.error.endDateBeforeStartDate")
			return
		}
		visit.StopDatetime = openmrs.NewDateTimePtr(payload.StopDatetime.Time)
		writeJSON(w, http.StatusOK, visit)
		return
	}
	writeError(w, http.StatusNotFound, "Object with given uuid doesn't exist", "")
}

func (s *Server) handleCreateEncounter(w http.ResponseWriter, r *http.Request) {
	payload := openmrs.NewEncounter{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var visit *openmrs.Visit
	for _, v := range s.visits {
		if v.UUID == payload.Visit {
			visit = v
		}
	}
	if visit == nil {
		writeError(w, http.StatusBadRequest, "Invalid Submission", "Encounter.visit.invalid")
		return
	}
	if payload.EncounterDatetime.Before(visit.StartDatetime.Time) {
		writeError(w, http.StatusBadRequest, "Invalid Submission", "Encounter.datetimeShouldBeInVisitDatesRange")
		return
	}

	s.encounters = append(s.encounters, payload)

	obs := make([]openmrs.Ref, 0, len(payload.Obs))
	for range payload.Obs {
		obs = append(obs, openmrs.Ref{UUID: uuid.NewString()})
	}
	writeJSON(w, http.StatusCreated, openmrs.Encounter{
		UUID:              uuid.NewString(),
		EncounterDatetime: openmrs.NewDateTimePtr(payload.EncounterDatetime.Time),
		Visit:             &openmrs.Ref{UUID: visit.UUID},
		Obs:               obs,
	})
}

func (s *Server) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	patient, ok := s.patients[r.PathValue("uuid")]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "Object with given uuid doesn't exist", "")
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

func (s *Server) handleListPatients(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	patients := make([]openmrs.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		patients = append(patients, p)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, openmrs.Results[openmrs.Patient]{Results: patients})
}

func validBasicAuth(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	expected := "Basic " + base64.StdEncoding.EncodeToString([]byte(Username+":"+Password))
	return header == expected
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	detail := openmrs.ErrorDetail{Message: message}
	if code != "" {
		detail.GlobalErrors = []openmrs.FieldError{{Code: code, Message: message}}
	}
	writeJSON(w, statusCode, openmrs.ErrorResponse{Detail: detail})
}

// routeOf replaces the uuid segment of a path so failures can be injected for any visit
func routeOf(path string) string {
	segments := strings.Split(path, "/")
	if len(segments) == 3 && segments[2] != "" {
		segments[2] = "{uuid}"
	}
	return strings.Join(segments, "/")
}
