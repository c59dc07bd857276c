package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects how setup tokens are signed and response tokens verified.
type SigningMethod string

const (
	// MethodHS256 signs with the shared API key issued by the authentication network.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

// Config defines the credentials of the challenge SDK integration.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	// Key is the shared secret for MethodHS256.
	Key        []byte
	PrivateKey []byte
	PublicKey  []byte
	// Issuer is the API identifier; it is placed in iss of setup tokens.
	Issuer    string
	OrgUnitID string
	// ResponseIssuer, when set, is required as iss of validation tokens.
	ResponseIssuer string
	Leeway         time.Duration
	KeyID          string
}

// Manager mints SDK setup tokens and verifies signed validation responses.
type Manager struct {
	config Config
	now    func() time.Time
	newID  func() string
}

// SetupClaims is the body of the token handed to the SDK setup call.
type SetupClaims struct {
	OrgUnitID        string `json:"OrgUnitId"`
	ReferenceID      string `json:"ReferenceId,omitempty"`
	ObjectifyPayload bool   `json:"ObjectifyPayload,omitempty"`
	jwt.RegisteredClaims
}

// ValidationPayload is the decision carried by a validation response token.
type ValidationPayload struct {
	ActionCode       string `json:"ActionCode"`
	ErrorNumber      int    `json:"ErrorNumber"`
	ErrorDescription string `json:"ErrorDescription,omitempty"`
	Validated        bool   `json:"Validated"`
}

// ValidationClaims is the body of a signed validation response token.
type ValidationClaims struct {
	ConsumerSessionID string            `json:"ConsumerSessionId,omitempty"`
	Payload           ValidationPayload `json:"Payload"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.OrgUnitID = strings.TrimSpace(cfg.OrgUnitID)
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Key) == 0 {
			return nil, errors.New("hs256 requires key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key")
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("issuer (API identifier) required")
	}
	if cfg.OrgUnitID == "" {
		return nil, errors.New("org unit id required")
	}

	return &Manager{config: cfg, now: time.Now, newID: uuid.NewString}, nil
}

// CreateSetup mints the token passed to the SDK's init setup. referenceID is
// optional and lets the network correlate the setup with an order.
func (m *Manager) CreateSetup(referenceID string) (string, error) {
	now := m.now()
	claims := SetupClaims{
		OrgUnitID:        m.config.OrgUnitID,
		ReferenceID:      referenceID,
		ObjectifyPayload: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        m.newID(),
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
	}

	token := jwt.NewWithClaims(m.getMethod(), claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}
	signKey, err := m.getSignKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(signKey)
}

// ParseValidation verifies a validation response token and returns its claims.
func (m *Manager) ParseValidation(tokenStr string) (*ValidationClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.getMethod().Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.ResponseIssuer != "" {
		options = append(options, jwt.WithIssuer(m.config.ResponseIssuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &ValidationClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.getMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if m.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != "" && kid != m.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return m.getVerifyKey()
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*ValidationClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if strings.TrimSpace(claims.Payload.ActionCode) == "" {
		return nil, errors.New("validation token missing action code")
	}
	return claims, nil
}

func (m *Manager) getMethod() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return jwt.SigningMethodEdDSA
	default:
		return jwt.SigningMethodHS256
	}
}

func (m *Manager) getSignKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		if len(m.config.PrivateKey) == 0 {
			return nil, errors.New("ed25519 private key not configured")
		}
		return parseEdPrivateKey(m.config.PrivateKey)
	default:
		return m.config.Key, nil
	}
}

func (m *Manager) getVerifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return parseEdPublicKey(m.config.PublicKey)
	default:
		return m.config.Key, nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
