package openmrs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is the classification of a failed OpenMRS call. The orchestrator branches on it instead of
// matching error text.
type Kind int

const (
	KindTransient Kind = iota
	KindAuthentication
	KindVisitOverlap
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindVisitOverlap:
		return "visit overlap"
	case KindNotFound:
		return "not found"
	default:
		return "transient"
	}
}

var (
	ErrBadCredentials        = errors.New("openmrs rejected the credentials")
	ErrServerTimeUnavailable = errors.New("server time setting is not available")
)

// Lower-cased fragments of codes and messages OpenMRS uses when a new visit overlaps an existing one
var overlapPatterns = []string{
	"overlap",
	"already has an active visit",
	"already has active visit",
	"cannotbebeforeendofpreviousvisit",
}

type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		b.WriteString(fmt.Sprintf(": status %d", e.StatusCode))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err. Unclassified errors are transient.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

func IsVisitOverlap(err error) bool {
	return err != nil && KindOf(err) == KindVisitOverlap
}

func isUnauthorized(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	// A rejected handshake is final, only an expired session is worth another attempt
	return e.StatusCode == http.StatusUnauthorized && !errors.Is(err, ErrBadCredentials)
}

type ErrorResponse struct {
	Detail ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message      string                  `json:"message"`
	Code         string                  `json:"code"`
	Detail       string                  `json:"detail"`
	GlobalErrors []FieldError            `json:"globalErrors"`
	FieldErrors  map[string][]FieldError `json:"fieldErrors"`
}

type FieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ErrorResponse) mentionsOverlap(raw []byte) bool {
	candidates := []string{e.Detail.Message, e.Detail.Code, e.Detail.Detail, string(raw)}
	for _, g := range e.Detail.GlobalErrors {
		candidates = append(candidates, g.Code, g.Message)
	}
	for _, fieldErrors := range e.Detail.FieldErrors {
		for _, f := range fieldErrors {
			candidates = append(candidates, f.Code, f.Message)
		}
	}

	for _, candidate := range candidates {
		normalized := strings.ToLower(candidate)
		for _, pattern := range overlapPatterns {
			if strings.Contains(normalized, pattern) {
				return true
			}
		}
	}
	return false
}

const maxRawMessageLength = 256

func newResponseError(op string, statusCode int, body *ErrorResponse, raw []byte) *Error {
	if body == nil {
		body = &ErrorResponse{}
	}

	message := body.Detail.Message
	if message == "" {
		message = strings.TrimSpace(string(raw))
		if len(message) > maxRawMessageLength {
			message = message[:maxRawMessageLength]
		}
	}

	err := &Error{
		Kind:       KindTransient,
		Op:         op,
		StatusCode: statusCode,
		Code:       body.Detail.Code,
		Message:    message,
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		err.Kind = KindAuthentication
	case body.mentionsOverlap(raw):
		err.Kind = KindVisitOverlap
	case statusCode == http.StatusNotFound:
		err.Kind = KindNotFound
	}
	return err
}
