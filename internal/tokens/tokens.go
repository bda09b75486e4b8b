// Package tokens issues and verifies the HS256-signed JWTs used by the
// service: single-use one-click approval links and browser session tokens.
// Single-use enforcement of one-click tokens lives in the persistence layer;
// this package only proves authenticity, kind and freshness.
package tokens

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/identity"
)

const (
	// KindOneClick marks tokens embedded in approval emails.
	KindOneClick = "mail-oneclick"
	// KindSession marks browser session tokens.
	KindSession = "session"
)

// ErrInvalidToken covers bad signatures, wrong kinds, malformed payloads and
// expired tokens alike.
var ErrInvalidToken = errors.New("invalid or expired token")

// OneClickClaims is the payload of a one-click action token. The token ID
// (jti) is carried in RegisteredClaims.ID.
type OneClickClaims struct {
	Kind         string            `json:"kind"`
	UniqueNumber string            `json:"unique_number"`
	Approver     string            `json:"approver"`
	Action       domain.StepStatus `json:"action"`
	jwt.RegisteredClaims
}

// SessionClaims is the payload of a session token; Subject is the email.
type SessionClaims struct {
	Kind string `json:"kind"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Signer issues and verifies tokens with a shared HMAC secret.
type Signer struct {
	secret      []byte
	oneClickTTL time.Duration
	sessionTTL  time.Duration
	now         func() time.Time
}

// NewSigner returns a Signer. TTLs must be positive.
func NewSigner(secret string, oneClickTTL, sessionTTL time.Duration) *Signer {
	return &Signer{
		secret:      []byte(secret),
		oneClickTTL: oneClickTTL,
		sessionTTL:  sessionTTL,
		now:         time.Now,
	}
}

// OneClickTTL returns the validity window of one-click tokens.
func (s *Signer) OneClickTTL() time.Duration { return s.oneClickTTL }

// SessionTTL returns the validity window of session tokens.
func (s *Signer) SessionTTL() time.Duration { return s.sessionTTL }

// NewJTI returns a random 96-bit token identifier in hex.
func NewJTI() (string, error) {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// IssueOneClick signs a token allowing approver to take action on the
// approval identified by uniqueNumber.
func (s *Signer) IssueOneClick(uniqueNumber, approver string, action domain.StepStatus) (string, error) {
	if !action.IsDecision() {
		return "", fmt.Errorf("issue one-click token: unsupported action %q", action)
	}
	jti, err := NewJTI()
	if err != nil {
		return "", err
	}
	now := s.now()
	claims := OneClickClaims{
		Kind:         KindOneClick,
		UniqueNumber: uniqueNumber,
		Approver:     identity.Normalize(approver),
		Action:       action,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.oneClickTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseOneClick verifies a one-click token and returns its claims.
func (s *Signer) ParseOneClick(raw string) (*OneClickClaims, error) {
	claims := &OneClickClaims{}
	if err := s.parse(raw, claims); err != nil {
		return nil, err
	}
	if claims.Kind != KindOneClick || claims.ID == "" || claims.UniqueNumber == "" ||
		claims.Approver == "" || !claims.Action.IsDecision() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueSession signs a session token for email with the given role and
// returns it together with its expiry.
func (s *Signer) IssueSession(email, role string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.sessionTTL)
	claims := SessionClaims{
		Kind: KindSession,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Normalize(email),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

// ParseSession verifies a session token and returns its claims.
func (s *Signer) ParseSession(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := s.parse(raw, claims); err != nil {
		return nil, err
	}
	if claims.Kind != KindSession || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Signer) parse(raw string, claims jwt.Claims) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrInvalidToken
	}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return ErrInvalidToken
	}
	return nil
}
