package threedstest

import (
	"sync"

	goThreeDS "github.com/MrEthical07/goThreeDS"
)

// FrameRecorder records the legacy Mount and Unmount hooks. Mounted frames
// are also sent on Frames when it is non-nil.
type FrameRecorder struct {
	Frames chan *goThreeDS.ChallengeFrame

	mu       sync.Mutex
	mounted  []*goThreeDS.ChallengeFrame
	unmounts int
}

// NewFrameRecorder returns a recorder whose Frames channel buffers n frames.
func NewFrameRecorder(n int) *FrameRecorder {
	return &FrameRecorder{Frames: make(chan *goThreeDS.ChallengeFrame, n)}
}

func (r *FrameRecorder) Mount(frame *goThreeDS.ChallengeFrame) {
	r.mu.Lock()
	r.mounted = append(r.mounted, frame)
	r.mu.Unlock()
	if r.Frames != nil {
		r.Frames <- frame
	}
}

func (r *FrameRecorder) Unmount() {
	r.mu.Lock()
	r.unmounts++
	r.mu.Unlock()
}

// Hooks sets Mount and Unmount of req to the recorder.
func (r *FrameRecorder) Hooks(req goThreeDS.VerificationRequest) goThreeDS.VerificationRequest {
	req.Mount = r.Mount
	req.Unmount = r.Unmount
	return req
}

func (r *FrameRecorder) Mounted() []*goThreeDS.ChallengeFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*goThreeDS.ChallengeFrame(nil), r.mounted...)
}

func (r *FrameRecorder) Unmounts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unmounts
}

// ModalRecorder is a goThreeDS.ModalPresenter. Dismiss simulates the
// cardholder closing the modal.
type ModalRecorder struct {
	mu      sync.Mutex
	opens   int
	closes  int
	dismiss func()
	opened  chan struct{}
}

func NewModalRecorder() *ModalRecorder {
	return &ModalRecorder{opened: make(chan struct{}, 16)}
}

func (m *ModalRecorder) Open(dismiss func()) {
	m.mu.Lock()
	m.opens++
	m.dismiss = dismiss
	m.mu.Unlock()
	select {
	case m.opened <- struct{}{}:
	default:
	}
}

func (m *ModalRecorder) Close() {
	m.mu.Lock()
	m.closes++
	m.dismiss = nil
	m.mu.Unlock()
}

// Opened receives once per Open.
func (m *ModalRecorder) Opened() <-chan struct{} {
	return m.opened
}

// Dismiss calls the dismiss callback of the open modal. It reports false
// when no modal is open.
func (m *ModalRecorder) Dismiss() bool {
	m.mu.Lock()
	dismiss := m.dismiss
	m.mu.Unlock()
	if dismiss == nil {
		return false
	}
	dismiss()
	return true
}

func (m *ModalRecorder) Counts() (opens, closes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens, m.closes
}

// InlineRecorder is a goThreeDS.InlinePresenter.
type InlineRecorder struct {
	mu       sync.Mutex
	mounted  []goThreeDS.InlineSetup
	unmounts int
}

func (r *InlineRecorder) Mount(surface *goThreeDS.InlineSetup) {
	r.mu.Lock()
	r.mounted = append(r.mounted, *surface)
	r.mu.Unlock()
}

func (r *InlineRecorder) Unmount() {
	r.mu.Lock()
	r.unmounts++
	r.mu.Unlock()
}

func (r *InlineRecorder) Mounted() []goThreeDS.InlineSetup {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]goThreeDS.InlineSetup(nil), r.mounted...)
}

func (r *InlineRecorder) Unmounts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unmounts
}
