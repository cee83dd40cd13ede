package openmrs

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	sessionPath   = "/session"
	sessionCookie = "JSESSIONID"
)

type Session struct {
	ID            string
	Authenticated bool
	EstablishedAt time.Time
}

// SessionManager establishes and caches the authenticated session of a single set of credentials.
// It is safe for concurrent use. Concurrent callers wait for a single handshake.
type SessionManager struct {
	restyClient *resty.Client
	logger      *zap.SugaredLogger

	session *Session
	mu      sync.Mutex
}

func NewSessionManager(restyClient *resty.Client, logger *zap.SugaredLogger) *SessionManager {
	return &SessionManager{
		restyClient: restyClient,
		logger:      logger,
	}
}

// Ensure returns the cached session or performs the handshake against the session endpoint
func (s *SessionManager) Ensure(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return s.session, nil
	}

	session, err := s.establish(ctx)
	if err != nil {
		return nil, err
	}

	s.session = session
	return session, nil
}

// Invalidate clears the cached session
func (s *SessionManager) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
}

// invalidateIfCurrent clears the cached session only if it's the one a failed request used, so a
// session re-established by a concurrent request is kept
func (s *SessionManager) invalidateIfCurrent(stale *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == stale {
		s.session = nil
	}
}

func (s *SessionManager) establish(ctx context.Context) (*Session, error) {
	const op = http.MethodGet + " " + sessionPath

	body := &sessionResponse{}
	apiErr := &ErrorResponse{}
	resp, err := s.restyClient.R().
		SetContext(ctx).
		SetResult(body).
		SetError(apiErr).
		Get(sessionPath)

	if err != nil {
		return nil, &Error{Kind: KindTransient, Op: op, Err: fmt.Errorf("error establishing session: %w", err)}
	}
	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		s.logger.Warnw("openmrs rejected the credentials", "status", resp.StatusCode())
		return nil, &Error{Kind: KindAuthentication, Op: op, StatusCode: resp.StatusCode(), Err: ErrBadCredentials}
	}
	if resp.IsError() {
		s.logger.Warnw("unable to establish session", "status", resp.StatusCode())
		return nil, newResponseError(op, resp.StatusCode(), apiErr, resp.Body())
	}
	if body.Authenticated != nil && !*body.Authenticated {
		s.logger.Warnw("openmrs session is not authenticated")
		return nil, &Error{Kind: KindAuthentication, Op: op, StatusCode: resp.StatusCode(), Err: ErrBadCredentials}
	}

	session := &Session{
		ID:            body.SessionID,
		Authenticated: true,
		EstablishedAt: time.Now(),
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookie && cookie.Value != "" {
			session.ID = cookie.Value
		}
	}

	s.logger.Debugw("established openmrs session", "hasSessionId", session.ID != "")
	return session, nil
}
