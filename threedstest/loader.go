package threedstest

import (
	"context"
	"sync"
	"time"
)

// RecordingLoader is a goThreeDS.ScriptLoader that counts loads per script
// URL.
type RecordingLoader struct {
	// Err, when set, fails every load.
	Err error
	// Delay holds each load before it returns.
	Delay time.Duration

	mu    sync.Mutex
	loads map[string]int
}

func NewRecordingLoader() *RecordingLoader {
	return &RecordingLoader{loads: make(map[string]int)}
}

func (l *RecordingLoader) LoadScript(ctx context.Context, src string) error {
	l.mu.Lock()
	if l.loads == nil {
		l.loads = make(map[string]int)
	}
	l.loads[src]++
	l.mu.Unlock()

	if l.Delay > 0 {
		select {
		case <-time.After(l.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return l.Err
}

// Loads returns how many times src was loaded.
func (l *RecordingLoader) Loads(src string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[src]
}
