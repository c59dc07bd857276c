package goThreeDS

import "sync"

const (
	frameworkModal  = "bootstrap3"
	frameworkInline = "inline"
)

// Inline surface modes reported by the SDK.
const (
	InlineModeSuppress = "suppress"
	InlineModeStatic   = "static"
)

// ModalPresenter shows the SDK's challenge in an on-page modal.
type ModalPresenter interface {
	// Open shows the modal. dismiss must be called when the cardholder
	// closes it through the backdrop or close button.
	Open(dismiss func())
	Close()
}

// InlinePresenter places the SDK's challenge markup on the page.
type InlinePresenter interface {
	Mount(surface *InlineSetup)
	Unmount()
}

// modalSurface opens the caller's modal when the SDK renders and turns a
// dismissal into a cardholder cancellation.
type modalSurface struct {
	presenter ModalPresenter

	mu   sync.Mutex
	open *attempt
}

func (p *modalSurface) framework() string { return frameworkModal }

func (p *modalSurface) subscribe(m *modernStrategy) {
	m.on(SDKEventRender, func(SDKEvent) {
		att := m.pendingChallenge()
		if att == nil {
			return
		}
		p.mu.Lock()
		if p.open != nil {
			p.mu.Unlock()
			return
		}
		p.open = att
		p.mu.Unlock()

		p.presenter.Open(func() { p.dismiss(m, att) })
	})
}

func (p *modalSurface) dismiss(m *modernStrategy, att *attempt) {
	if _, err := m.sdk.Trigger(att.ctx, SDKEventClose, nil); err != nil {
		m.host.logger.Warn("3ds sdk close failed", "error", err)
	}
	m.settle(att, nil, ErrSDKCanceled)
}

func (p *modalSurface) release(att *attempt) {
	p.mu.Lock()
	if p.open != att {
		p.mu.Unlock()
		return
	}
	p.open = nil
	p.mu.Unlock()
	p.presenter.Close()
}

// inlineSurface hands the SDK's markup to the caller instead of letting the
// SDK draw its own modal.
type inlineSurface struct {
	presenter InlinePresenter

	mu      sync.Mutex
	mounted bool
}

func (p *inlineSurface) framework() string { return frameworkInline }

func (p *inlineSurface) subscribe(m *modernStrategy) {
	m.on(SDKEventInlineSetup, func(ev SDKEvent) {
		att := m.pendingChallenge()
		if att == nil {
			return
		}
		if !validInlineSetup(ev.Inline) {
			m.settle(att, nil, ErrInlineIframeDetailsIncorrect)
			return
		}
		surface := *ev.Inline
		p.mu.Lock()
		p.mounted = true
		p.mu.Unlock()
		p.presenter.Mount(&surface)
		if att.settled() {
			p.release(att)
		}
	})
}

func validInlineSetup(s *InlineSetup) bool {
	if s == nil || s.Markup == "" || s.Container == "" {
		return false
	}
	if s.PaymentType != "CCA" {
		return false
	}
	return s.Mode == InlineModeSuppress || s.Mode == InlineModeStatic
}

func (p *inlineSurface) release(*attempt) {
	p.mu.Lock()
	mounted := p.mounted
	p.mounted = false
	p.mu.Unlock()
	if mounted {
		p.presenter.Unmount()
	}
}
