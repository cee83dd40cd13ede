package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/tidepool-org/vitals-bridge/types"
)

// MockDevice measures fixed vitals without a camera. It's used when no scanner SDK is available.
type MockDevice struct {
	// InitializationResults are returned by consecutive calls to Initialize. The last result is
	// repeated. An empty list initializes successfully.
	InitializationResults []InitializationResult

	// Interval between published results
	Interval time.Duration

	initializations int
	mu              sync.Mutex
}

var _ Device = &MockDevice{}

func NewMockDevice() *MockDevice {
	return &MockDevice{}
}

func (m *MockDevice) Initialize(_ context.Context, _, _ string, _ Settings) (InitializationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.initializations++
	if len(m.InitializationResults) == 0 {
		return InitializationOK, nil
	}
	if m.initializations > len(m.InitializationResults) {
		return m.InitializationResults[len(m.InitializationResults)-1], nil
	}
	return m.InitializationResults[m.initializations-1], nil
}

func (m *MockDevice) Initializations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initializations
}

func (m *MockDevice) Subscribe(ctx context.Context) (<-chan Results, error) {
	results := []Results{
		{HeartRateBpm: types.Ptr(74.0)},
		{
			HeartRateBpm:     types.Ptr(72.0),
			HrvSdnnMs:        types.Ptr(42.5),
			BreathingRateBpm: types.Ptr(16.0),
			SystolicMmHg:     types.Ptr(118.0),
			DiastolicMmHg:    types.Ptr(78.0),
			Final:            true,
		},
	}

	ch := make(chan Results)
	go func() {
		defer close(ch)
		for _, result := range results {
			if m.Interval > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(m.Interval):
				}
			}

			result.CapturedAt = time.Now()
			select {
			case <-ctx.Done():
				return
			case ch <- result:
			}
		}
	}()

	return ch, nil
}
