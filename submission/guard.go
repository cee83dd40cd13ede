package submission

import (
	"context"
	"strings"
	"sync"

	"github.com/tidepool-org/vitals-bridge/openmrs"
)

// Guard prevents concurrent submissions for the same patient
type Guard interface {
	// Acquire returns ErrAlreadySending if the key is already held. The returned function releases
	// the key.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

func guardKey(credentials openmrs.Credentials, patientUUID string) string {
	return strings.TrimSuffix(credentials.BaseURL, "/") + "|" + patientUUID
}

type MemoryGuard struct {
	inFlight map[string]struct{}
	mu       sync.Mutex
}

var _ Guard = &MemoryGuard{}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		inFlight: make(map[string]struct{}),
	}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.inFlight[key]; ok {
		return nil, ErrAlreadySending
	}
	g.inFlight[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.inFlight, key)
		})
	}, nil
}
