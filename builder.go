package goThreeDS

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goThreeDS/bus"
	"github.com/MrEthical07/goThreeDS/internal/rate"
	"github.com/MrEthical07/goThreeDS/internal/stores"
	"github.com/MrEthical07/goThreeDS/jwt"
)

// Builder assembles a Session.
//
// Builder instances are configured during initialization and used once:
// a second Build fails.
type Builder struct {
	config Config

	transport      Transport
	httpClient     *http.Client
	bus            bus.Bus
	originVerifier OriginVerifier
	sdk            ChallengeSDK
	loader         ScriptLoader
	redis          redis.UniversalClient
	eventSink      EventSink
	logger         *slog.Logger
	modal          ModalPresenter
	inline         InlinePresenter

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithTransport sets the gateway transport. Without it Build uses an
// HTTPTransport for Config.Gateway.
func (b *Builder) WithTransport(t Transport) *Builder {
	b.transport = t
	return b
}

// WithHTTPClient sets the client of the default HTTPTransport. It is ignored
// when WithTransport is used.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithBus sets the message bus of the legacy strategy.
func (b *Builder) WithBus(mb bus.Bus) *Builder {
	b.bus = mb
	return b
}

// WithOriginVerifier overrides which bus origins the legacy strategy trusts.
//
// The default trusts Legacy.AllowedOrigins, or the origin of
// Legacy.AssetsURL when the list is empty.
func (b *Builder) WithOriginVerifier(v OriginVerifier) *Builder {
	b.originVerifier = v
	return b
}

// WithSDK sets the challenge SDK handle of the modern strategy.
func (b *Builder) WithSDK(sdk ChallengeSDK) *Builder {
	b.sdk = sdk
	return b
}

func (b *Builder) WithScriptLoader(l ScriptLoader) *Builder {
	b.loader = l
	return b
}

// WithRedis enables ServerLookup, ResumeFromHandoff and the lookup limiter.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	return b
}

// WithLogger sets the structured logger. The default is slog.Default().
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithModal presents modern challenges in the caller's modal.
func (b *Builder) WithModal(p ModalPresenter) *Builder {
	b.modal = p
	return b
}

// WithInline presents modern challenges inline on the caller's page.
func (b *Builder) WithInline(p InlinePresenter) *Builder {
	b.inline = p
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and the collaborators the selected
// strategy needs and returns a Session in StateIdle.
//
// Build fails with ErrInvalidConfig when the builder was already used, the
// configuration is invalid, or a required collaborator is missing.
func (b *Builder) Build() (*Session, error) {
	if b.built {
		return nil, invalidConfig("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.RateLimit.Enabled && b.redis == nil {
		return nil, invalidConfig("RateLimit requires a Redis client")
	}

	switch cfg.Version {
	case VersionLegacy:
		if b.bus == nil {
			return nil, invalidConfig("the legacy strategy requires a message bus")
		}
		if b.modal != nil || b.inline != nil {
			return nil, invalidConfig("modal and inline presentation require the modern strategy")
		}
	case VersionModern:
		if b.sdk == nil {
			return nil, invalidConfig("the modern strategy requires a challenge SDK")
		}
		if b.loader == nil {
			return nil, invalidConfig("the modern strategy requires a script loader")
		}
		if b.modal != nil && b.inline != nil {
			return nil, invalidConfig("modal and inline presentation are mutually exclusive")
		}
	}

	var tokens *jwt.Manager
	if cfg.JWT.configured() {
		jm, err := jwt.NewManager(jwtConfig(cfg.JWT))
		if err != nil {
			return nil, invalidConfig("JWT: %v", err)
		}
		tokens = jm
	}

	transport := b.transport
	if transport == nil {
		transport = NewHTTPTransport(cfg.Gateway, b.httpClient)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, w := range cfg.Lint().BySeverity(LintWarn) {
		logger.Warn("3ds config lint", "code", w.Code, "severity", w.Severity.String(), "message", w.Message)
	}

	s := &Session{
		id:      uuid.NewString(),
		cfg:     cfg,
		metrics: NewMetrics(cfg.Metrics),
		now:     time.Now,
		state:   StateIdle,
	}
	s.logger = logger.With("session_id", s.id)
	s.gateway = &lookupGateway{
		transport: transport,
		metrics:   s.metrics,
		logger:    s.logger,
	}

	if b.redis != nil {
		s.handoffs = stores.NewHandoffStore(b.redis, cfg.Handoff.RedisPrefix)
		if cfg.RateLimit.Enabled {
			s.limiter = rate.New(b.redis, rate.Config{
				Prefix:     cfg.RateLimit.RedisPrefix,
				MaxLookups: cfg.RateLimit.MaxLookups,
				Window:     cfg.RateLimit.Window,
			})
		}
	}

	// -------- STRATEGY --------
	if cfg.Version == VersionLegacy {
		s.strategy = newLegacyStrategy(s, cfg.Legacy, b.bus, b.originVerifier)
	} else {
		var surface challengeSurface
		switch {
		case b.modal != nil:
			surface = &modalSurface{presenter: b.modal}
		case b.inline != nil:
			surface = &inlineSurface{presenter: b.inline}
		}
		s.strategy = newModernStrategy(s, cfg, b.sdk, b.loader, tokens, surface)
	}

	s.events = newEventDispatcher(cfg.Events, b.eventSink)

	b.built = true

	return s, nil
}

func jwtConfig(c JWTConfig) jwt.Config {
	return jwt.Config{
		TTL:            c.TTL,
		SigningMethod:  jwt.SigningMethod(c.SigningMethod),
		Key:            []byte(c.Key),
		PrivateKey:     []byte(c.PrivateKey),
		PublicKey:      []byte(c.PublicKey),
		Issuer:         c.Issuer,
		OrgUnitID:      c.OrgUnitID,
		ResponseIssuer: c.ResponseIssuer,
		Leeway:         c.Leeway,
		KeyID:          c.KeyID,
	}
}
