// Package services – AuthService
//
// This file implements AuthService: email/password signup confirmed by a
// mailed six-digit code, password login issuing a session token, and the
// lookup behind /auth/me. Pending signups live in an in-memory TTL store and
// are never persisted; an unconfirmed signup simply expires.
package services

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/identity"
	"github.com/tbourn/go-claims-backend/internal/notify"
	"github.com/tbourn/go-claims-backend/internal/repo"
	"github.com/tbourn/go-claims-backend/internal/tokens"
	"github.com/tbourn/go-claims-backend/internal/ttlstore"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 8

// otpPeriod is the TOTP step. Codes are validated against the signup
// instant, so the step only has to cover the TTL store's window.
const otpPeriod = 30

// PendingSignup is a signup awaiting its verification code.
type PendingSignup struct {
	Secret       string
	PasswordHash string
	IssuedAt     time.Time
}

// Session is the outcome of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

// Membership reports whether an email is listed in the people directory.
type Membership interface {
	InDirectory(ctx context.Context, email string) (bool, error)
}

// AuthService registers and authenticates users.
type AuthService struct {
	DB        *gorm.DB
	Signer    *tokens.Signer
	Mailer    notify.Mailer
	Directory Membership

	// Pending holds unconfirmed signups keyed by email.
	Pending *ttlstore.Store[PendingSignup]
	// Issuer labels generated OTP secrets.
	Issuer string
	// BcryptCost is the hashing cost; zero means bcrypt.DefaultCost.
	BcryptCost int

	now func() time.Time
}

// NewAuthService constructs an AuthService whose pending signups expire
// after otpTTL.
func NewAuthService(db *gorm.DB, signer *tokens.Signer, mailer notify.Mailer, dir Membership, otpTTL time.Duration) *AuthService {
	return &AuthService{
		DB:        db,
		Signer:    signer,
		Mailer:    mailer,
		Directory: dir,
		Pending:   ttlstore.New[PendingSignup](otpTTL),
		Issuer:    "Claims",
		now:       time.Now,
	}
}

func (s *AuthService) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *AuthService) cost() int {
	if s.BcryptCost == 0 {
		return bcrypt.DefaultCost
	}
	return s.BcryptCost
}

func otpOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    otpPeriod,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Signup validates the request, stores a pending signup and mails the
// verification code. Calling it again for the same email replaces the code.
func (s *AuthService) Signup(ctx context.Context, email, password, confirm string) error {
	email = identity.Normalize(email)
	if !identity.IsEmail(email) {
		return fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if password != confirm {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}
	if len(password) < MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLen)
	}
	if _, err := repo.GetUserByEmail(ctx, s.DB, email); err == nil {
		return ErrUserExists
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return err
	}
	key, err := totp.Generate(totp.GenerateOpts{Issuer: s.Issuer, AccountName: email})
	if err != nil {
		return err
	}
	now := s.clock()
	code, err := totp.GenerateCodeCustom(key.Secret(), now, otpOpts())
	if err != nil {
		return err
	}
	s.Pending.Put(email, PendingSignup{Secret: key.Secret(), PasswordHash: string(hash), IssuedAt: now})

	if s.Mailer == nil {
		return nil
	}
	return s.Mailer.Send(ctx, notify.Message{
		To:      email,
		Subject: "Your verification code",
		HTML:    "<p>Your verification code is <strong>" + template.HTMLEscapeString(code) + "</strong>.</p>",
		Text:    "Your verification code is " + code + ".",
	})
}

// VerifySignup confirms a pending signup and creates the user. Directory
// members become approvers; everyone else is a user.
func (s *AuthService) VerifySignup(ctx context.Context, email, code string) (*domain.User, error) {
	email = identity.Normalize(email)
	p, ok := s.Pending.Get(email)
	if !ok {
		return nil, ErrOTPExpired
	}
	valid, err := totp.ValidateCustom(strings.TrimSpace(code), p.Secret, p.IssuedAt, otpOpts())
	if err != nil || !valid {
		return nil, ErrOTPIncorrect
	}

	role := domain.RoleUser
	if s.Directory != nil {
		in, err := s.Directory.InDirectory(ctx, email)
		if err != nil {
			return nil, err
		}
		if in {
			role = domain.RoleApprover
		}
	}
	u, err := repo.CreateUser(ctx, s.DB, email, p.PasswordHash, role)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, err
	}
	s.Pending.Delete(email)
	return u, nil
}

// Login checks credentials and issues a session token. Unknown users and
// wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = identity.Normalize(email)
	if !strings.Contains(email, "@") || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	tok, exp, err := s.Signer.IssueSession(u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: tok, ExpiresAt: exp, Email: u.Email, Role: u.Role}, nil
}

// CreateUser registers an account directly, bypassing verification. Used
// by claimctl.
func (s *AuthService) CreateUser(ctx context.Context, email, password, role string) (*domain.User, error) {
	email = identity.Normalize(email)
	if !identity.IsEmail(email) {
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if len(password) < MinPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLen)
	}
	switch role {
	case domain.RoleUser, domain.RoleApprover, domain.RoleHR, domain.RoleMaster:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return nil, err
	}
	u, err := repo.CreateUser(ctx, s.DB, email, string(hash), role)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrUserExists
	}
	return u, err
}

// Me returns the stored account for email.
func (s *AuthService) Me(ctx context.Context, email string) (*domain.User, error) {
	u, err := repo.GetUserByEmail(ctx, s.DB, identity.Normalize(email))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	return u, err
}

// SweepPending drops expired pending signups.
func (s *AuthService) SweepPending(now time.Time) int {
	return s.Pending.Sweep(now)
}
