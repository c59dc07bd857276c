package goThreeDS

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/MrEthical07/goThreeDS/bus"
	"github.com/MrEthical07/goThreeDS/internal/flows"
)

// Bus events exchanged with the bank frame.
const (
	BusEventConfigurationRequested = "configuration-requested"
	BusEventAuthenticationComplete = "authentication-complete"
)

var errEmptyAuthResponse = errors.New("authentication complete message has no auth_response")

// FrameConfiguration is the reply to the bank frame's configuration request.
type FrameConfiguration struct {
	AcsURL    string `json:"acsUrl"`
	PaReq     string `json:"pareq"`
	MD        string `json:"md"`
	TermURL   string `json:"termUrl"`
	ParentURL string `json:"parentUrl,omitempty"`
}

type authCompleteMessage struct {
	AuthResponse string `json:"auth_response"`
}

type authResponse struct {
	Success          bool              `json:"success"`
	PaymentMethod    *PaymentMethod    `json:"paymentMethod"`
	ThreeDSecureInfo *ThreeDSecureInfo `json:"threeDSecureInfo"`
	Error            *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// legacyFrame is the bank frame of one attempt. Whoever releases it first
// tears the channel down and unmounts.
type legacyFrame struct {
	att     *attempt
	channel bus.Channel
}

type legacyStrategy struct {
	host         *Session
	cfg          LegacyConfig
	bus          bus.Bus
	verifyOrigin OriginVerifier
	newID        func() string

	mu    sync.Mutex
	frame *legacyFrame
}

func newLegacyStrategy(host *Session, cfg LegacyConfig, b bus.Bus, verify OriginVerifier) *legacyStrategy {
	if verify == nil {
		verify = legacyOriginVerifier(cfg)
	}
	return &legacyStrategy{
		host:         host,
		cfg:          cfg,
		bus:          b,
		verifyOrigin: verify,
		newID:        uuid.NewString,
	}
}

func (l *legacyStrategy) version() StrategyVersion { return VersionLegacy }

func (l *legacyStrategy) name() string { return "legacy" }

func (l *legacyStrategy) blockingError() error { return nil }

func (l *legacyStrategy) checkRequest(req *VerificationRequest, _ bool) error {
	if req.Mount == nil {
		return missingOption("a Mount hook")
	}
	if req.Unmount == nil {
		return missingOption("an Unmount hook")
	}
	return nil
}

func (l *legacyStrategy) prepare(context.Context, *attempt) error { return nil }

func (l *legacyStrategy) formatLookupData(_ context.Context, req *VerificationRequest) map[string]any {
	data := baseLookupData(req)
	if addr := addressFields(req.BillingAddress); addr != nil {
		data["customer"] = map[string]any{
			"billingAddress": flows.LegacyBillingAddress(*addr),
		}
	}
	return data
}

func (l *legacyStrategy) onLookupComplete(context.Context, *attempt) error { return nil }

func (l *legacyStrategy) presentChallenge(ctx context.Context, att *attempt) error {
	ch := l.bus.Channel(l.newID())
	frame := &legacyFrame{att: att, channel: ch}

	l.mu.Lock()
	prev := l.frame
	l.frame = frame
	l.mu.Unlock()
	if prev != nil {
		l.releaseFrame(prev)
	}

	ch.On(BusEventConfigurationRequested, func(msg bus.Message, reply bus.Reply) {
		if !l.trusted(msg) {
			return
		}
		if err := reply(l.frameConfiguration(att.lookupResult().Challenge, ch.ID())); err != nil {
			l.host.logger.Warn("3ds frame configuration reply failed", "channel", ch.ID(), "error", err)
		}
	})
	ch.On(BusEventAuthenticationComplete, func(msg bus.Message, _ bus.Reply) {
		if !l.trusted(msg) {
			return
		}
		l.handleAuthComplete(frame, msg.Payload)
	})

	att.req.Mount(&ChallengeFrame{
		Name:      l.cfg.FrameName,
		Src:       l.assetURL("three-d-secure-bank-frame.html"),
		ChannelID: ch.ID(),
	})
	l.host.logger.DebugContext(ctx, "3ds bank frame mounted", "channel", ch.ID())
	return nil
}

func (l *legacyStrategy) trusted(msg bus.Message) bool {
	if l.verifyOrigin(msg.Origin) {
		return true
	}
	l.host.logger.Warn("3ds bus message from untrusted origin ignored", "event", msg.Event, "origin", msg.Origin)
	return false
}

func (l *legacyStrategy) frameConfiguration(c *ChallengeDescriptor, channelID string) FrameConfiguration {
	completion := l.assetURL("three-d-secure-authentication-complete-frame.html") +
		"?channel=" + url.QueryEscape(channelID)

	sep := "?"
	if strings.Contains(c.TermURL, "?") {
		sep = "&"
	}
	termURL := c.TermURL + sep +
		"three_d_secure_version=" + url.QueryEscape(l.cfg.LibraryVersion) +
		"&authentication_complete_base_url=" + url.QueryEscape(completion)

	return FrameConfiguration{
		AcsURL:    c.AcsURL,
		PaReq:     c.PaReq,
		MD:        c.MD,
		TermURL:   termURL,
		ParentURL: l.cfg.ParentURL,
	}
}

func (l *legacyStrategy) assetURL(page string) string {
	return strings.TrimSuffix(l.cfg.AssetsURL, "/") + "/web/" + l.cfg.LibraryVersion + "/html/" + page
}

func (l *legacyStrategy) handleAuthComplete(frame *legacyFrame, payload json.RawMessage) {
	if !l.release(frame) {
		return
	}
	att := frame.att
	lookup := att.lookupResult()

	resp, err := parseAuthResponse(payload)
	if err != nil {
		att.reject(ErrUnknownAuthResponse.with(err))
		return
	}

	info := resp.ThreeDSecureInfo
	shiftPossible := info != nil && info.LiabilityShiftPossible

	switch flows.DecideAuthResponse(resp.Success, shiftPossible, l.cfg.SoftDeclineFallback) {
	case flows.AuthDecisionAuthenticated:
		pm := resp.PaymentMethod
		if pm == nil {
			pm = lookup.PaymentMethod
		}
		att.resolve(formatOutcome(pm, info))
	case flows.AuthDecisionFallback:
		l.host.logger.Info("3ds challenge unsuccessful, resolving with pre-challenge reference",
			"reference_id", lookup.PaymentMethod.ReferenceID)
		att.resolve(formatOutcome(lookup.PaymentMethod, info))
	default:
		msg := ""
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		if msg == "" {
			att.reject(ErrUnknownAuthResponse)
			return
		}
		att.reject(ErrUnknownAuthResponse.withMessage("%s", msg))
	}
}

func parseAuthResponse(payload json.RawMessage) (*authResponse, error) {
	var msg authCompleteMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, err
	}
	if msg.AuthResponse == "" {
		return nil, errEmptyAuthResponse
	}
	var resp authResponse
	if err := json.Unmarshal([]byte(msg.AuthResponse), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// release detaches frame if it is still current, then tears it down. The
// frame is unmounted before any outcome is delivered.
func (l *legacyStrategy) release(frame *legacyFrame) bool {
	l.mu.Lock()
	if l.frame != frame {
		l.mu.Unlock()
		return false
	}
	l.frame = nil
	l.mu.Unlock()

	l.releaseFrame(frame)
	return true
}

func (l *legacyStrategy) releaseFrame(frame *legacyFrame) {
	frame.channel.Teardown()
	if unmount := frame.att.req.Unmount; unmount != nil {
		unmount()
	}
}

func (l *legacyStrategy) abortChallenge(att *attempt) {
	l.mu.Lock()
	frame := l.frame
	l.mu.Unlock()
	if frame != nil && frame.att == att {
		l.release(frame)
	}
}

func (l *legacyStrategy) teardown(context.Context) {
	l.mu.Lock()
	frame := l.frame
	l.mu.Unlock()
	if frame != nil {
		l.release(frame)
	}
}
