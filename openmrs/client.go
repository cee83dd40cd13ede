package openmrs

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/benbjohnson/clock"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	apiPath = "/ws/rest/v1"

	// A request is retried once after re-authenticating
	requestAttempts = 2
)

//go:generate mockgen -destination=mock_api.go -package=openmrs -self_package=github.com/tidepool-org/vitals-bridge/openmrs github.com/tidepool-org/vitals-bridge/openmrs API

// API is the subset of the OpenMRS REST API used for submitting measurements
type API interface {
	ResolveReferenceTime(ctx context.Context) time.Time
	CloseActiveVisits(ctx context.Context, patientUUID string, referenceTime time.Time) error
	CreateVisit(ctx context.Context, visit NewVisit) (*Visit, error)
	CreateEncounter(ctx context.Context, encounter NewEncounter) (*Encounter, error)
	CloseVisit(ctx context.Context, visitUUID string, stopDatetime time.Time) (*Visit, error)
	GetPatient(ctx context.Context, patientUUID string) (*Patient, error)
}

type Client struct {
	config      Config
	credentials Credentials
	restyClient *resty.Client
	sessions    *SessionManager
	limiter     *RateLimiter
	clock       clock.Clock
	logger      *zap.SugaredLogger
}

var _ API = &Client{}

type Option func(*Client)

// WithClock replaces the local clock used for the reference time fallback
func WithClock(clock clock.Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

func NewClient(config Config, credentials Credentials, logger *zap.SugaredLogger, opts ...Option) (*Client, error) {
	if credentials.BaseURL == "" {
		return nil, errors.New("openmrs base url is required")
	}

	restyClient := resty.New().
		SetBaseURL(credentials.normalizedBaseURL()+apiPath).
		SetBasicAuth(credentials.Username, credentials.Password).
		SetTimeout(config.RequestTimeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	// The session cookie is managed explicitly, so an invalidated session is never resent
	restyClient.SetCookieJar(nil)

	client := &Client{
		config:      config,
		credentials: credentials,
		restyClient: restyClient,
		sessions:    NewSessionManager(restyClient, logger),
		limiter:     NewRateLimiter(config.RequestsPerSecond),
		clock:       clock.New(),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

func (c *Client) Credentials() Credentials {
	return c.credentials
}

func (c *Client) Sessions() *SessionManager {
	return c.sessions
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, nil, body, result)
}

// do executes an authenticated request. If the session expired the request is repeated once with
// a fresh session.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result interface{}) error {
	op := method + " " + path
	return retry.Do(
		func() error {
			return c.execute(ctx, op, method, path, query, body, result)
		},
		retry.Context(ctx),
		retry.Attempts(requestAttempts),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(isUnauthorized),
		retry.LastErrorOnly(true),
	)
}

func (c *Client) execute(ctx context.Context, op, method, path string, query url.Values, body, result interface{}) error {
	session, err := c.sessions.Ensure(ctx)
	if err != nil {
		return err
	}

	c.limiter.WaitOrContinue()

	apiErr := &ErrorResponse{}
	req := c.restyClient.R().
		SetContext(ctx).
		SetError(apiErr)

	if session.ID != "" {
		req.SetCookie(&http.Cookie{Name: sessionCookie, Value: session.ID})
	}
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return &Error{Kind: KindTransient, Op: op, Err: err}
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		c.logger.Infow("session is no longer valid", "op", op)
		c.sessions.invalidateIfCurrent(session)
	}
	if resp.IsError() {
		return newResponseError(op, resp.StatusCode(), apiErr, resp.Body())
	}

	return nil
}

// ClientProvider returns the client sharing the session of the given credentials
type ClientProvider interface {
	ClientFor(credentials Credentials) (API, error)
}

// Registry keeps a single client, and therefore a single session, per set of credentials
type Registry struct {
	config Config
	logger *zap.SugaredLogger
	opts   []Option

	clients map[Credentials]*Client
	mu      sync.Mutex
}

var _ ClientProvider = &Registry{}

func NewRegistry(config Config, logger *zap.SugaredLogger, opts ...Option) *Registry {
	return &Registry{
		config:  config,
		logger:  logger,
		opts:    opts,
		clients: make(map[Credentials]*Client),
	}
}

func (r *Registry) ClientFor(credentials Credentials) (API, error) {
	return r.Client(credentials)
}

func (r *Registry) Client(credentials Credentials) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[credentials]; ok {
		return client, nil
	}

	client, err := NewClient(r.config, credentials, r.logger, r.opts...)
	if err != nil {
		return nil, err
	}
	r.clients[credentials] = client
	return client, nil
}
