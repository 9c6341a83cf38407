package access

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"teamdir.org/internal/directory"
)

const (
	defaultIssuer    = "teamdir"
	defaultAccessTTL = 12 * time.Hour
)

// Service issues session tokens and resolves claims into principals with
// their effective permission sets.
type Service struct {
	store  Store
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// Claims are the JWT claims carried by a session token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) error {
		if v := strings.TrimSpace(issuer); v != "" {
			s.issuer = v
		}
		return nil
	}
}

// WithTokenTTL configures session token lifetime.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.ttl = ttl
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the access service. The signing secret is required:
// the service fails closed rather than issuing unverifiable tokens.
func NewService(store Store, secret string, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("access store is required")
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("access token secret is required")
	}
	svc := &Service{
		store:  store,
		secret: []byte(secret),
		issuer: defaultIssuer,
		ttl:    defaultAccessTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// EnsureBuiltins ensures the predefined permission catalog exists.
func (s *Service) EnsureBuiltins(ctx context.Context) error {
	return s.store.EnsurePermissions(ctx, BuiltinPermissions)
}

// PermissionSet returns the collapsed set of permission keys currently
// effective for the person.
func (s *Service) PermissionSet(ctx context.Context, personID int64) (map[string]struct{}, error) {
	grants, err := s.store.EffectiveGrants(ctx, personID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(grants))
	for _, g := range grants {
		set[g.PermissionKey] = struct{}{}
	}
	return set, nil
}

// Principal loads the person and their effective permission set.
func (s *Service) Principal(ctx context.Context, personID int64) (Principal, error) {
	person, err := s.store.FindPerson(ctx, personID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Principal{}, ErrNotFound
		}
		return Principal{}, err
	}
	grants, err := s.store.EffectiveGrants(ctx, personID, s.now().UTC())
	if err != nil {
		return Principal{}, err
	}
	return NewPrincipal(&person, grants), nil
}

// IssueToken authenticates credentials and returns a signed session token.
func (s *Service) IssueToken(ctx context.Context, email, password string) (string, time.Time, Principal, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", time.Time{}, Principal{}, ErrUnauthorized
	}
	cred, err := s.store.FindCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", time.Time{}, Principal{}, ErrUnauthorized
		}
		// A store failure is not a credential failure; let it surface.
		return "", time.Time{}, Principal{}, fmt.Errorf("find credential: %w", err)
	}
	if !cred.CanLogin || !cred.IsActive || cred.PasswordHash == "" {
		return "", time.Time{}, Principal{}, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, Principal{}, ErrUnauthorized
	}

	principal, err := s.Principal(ctx, cred.PersonID)
	if err != nil {
		return "", time.Time{}, Principal{}, err
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(cred.PersonID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, Principal{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, principal, nil
}

// AuthenticateToken verifies a session token and resolves the principal. The
// permission set is loaded once here; callers carry the principal in the
// request context instead of re-querying per check.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (Principal, error) {
	claims, err := s.parseAndValidate(token)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	personID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	principal, err := s.Principal(ctx, personID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	return principal, nil
}

func (s *Service) parseAndValidate(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != s.issuer {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Grant records a new permission grant for a person.
func (s *Service) Grant(ctx context.Context, grant Grant) (Grant, error) {
	if grant.PersonID <= 0 {
		return Grant{}, fmt.Errorf("%w: person_id is required", ErrInvalidInput)
	}
	grant.PermissionKey = strings.TrimSpace(grant.PermissionKey)
	if grant.PermissionKey == "" {
		return Grant{}, fmt.Errorf("%w: permission key is required", ErrInvalidInput)
	}
	now := s.now().UTC()
	if grant.ExpiresAt != nil && !grant.ExpiresAt.After(now) {
		return Grant{}, fmt.Errorf("%w: expires_at must be in the future", ErrInvalidInput)
	}
	if grant.GrantedAt.IsZero() {
		grant.GrantedAt = now
	}
	grant.Notes = strings.TrimSpace(grant.Notes)
	return s.store.CreateGrant(ctx, grant)
}

// Revoke removes a grant.
func (s *Service) Revoke(ctx context.Context, grantID int64) error {
	if grantID <= 0 {
		return fmt.Errorf("%w: grant id is required", ErrInvalidInput)
	}
	return s.store.DeleteGrant(ctx, grantID)
}

// GrantsFor lists every grant for a person, expired ones included.
func (s *Service) GrantsFor(ctx context.Context, personID int64) ([]Grant, error) {
	if personID <= 0 {
		return nil, fmt.Errorf("%w: person id is required", ErrInvalidInput)
	}
	return s.store.GrantsForPerson(ctx, personID)
}

// ListPermissions returns the permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

// SetPassword hashes and stores a new password for the person.
func (s *Service) SetPassword(ctx context.Context, personID int64, password string) error {
	if personID <= 0 {
		return fmt.Errorf("%w: person id is required", ErrInvalidInput)
	}
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.store.SetPasswordHash(ctx, personID, hash)
}

// HashPassword hashes a plaintext password for storage on a person row.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
