package sessions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the name of the session cookie
const CookieName = "sessID"

// Manager reads and writes the session cookie and its backing Store
type Manager struct {
	Store  Store
	Secret []byte
	TTL    time.Duration
	Secure bool
	now    func() time.Time
}

// NewManager returns a Manager signing cookies with secret
func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	return &Manager{Store: store, Secret: []byte(secret), TTL: ttl, now: time.Now}
}

func (m *Manager) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

// Load returns the session the request's cookie points at. ok is false when the
// cookie is missing, forged, expired or refers to an invalidated session.
func (m *Manager) Load(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, false
	}
	id, err := m.parse(c.Value)
	if err != nil {
		return nil, false
	}
	s, err := m.Store.Get(r.Context(), id)
	if err != nil {
		return nil, false
	}
	return s, true
}

// Save persists s, assigning an id to new sessions, and sets the cookie
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
		s.CreatedAt = m.clock()
	}
	if err := m.Store.Set(ctx, s, m.TTL); err != nil {
		return err
	}
	value, err := m.sign(s.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.TTL / time.Second),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// Invalidate ends the session id. Requests still carrying its cookie are treated
// as having no session.
func (m *Manager) Invalidate(ctx context.Context, id string) error {
	return m.Store.Delete(ctx, id)
}

// Destroy invalidates id and clears the cookie on w
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, id string) error {
	err := m.Invalidate(ctx, id)
	ClearCookie(w)
	return err
}

// ClearCookie expires the session cookie
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (m *Manager) sign(id string) (string, error) {
	now := m.clock()
	claims := jwt.RegisteredClaims{
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.TTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
}

func (m *Manager) parse(value string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (interface{}, error) {
		return m.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.clock))
	if err != nil {
		return "", fmt.Errorf("parse session cookie: %w", err)
	}
	if !token.Valid || claims.ID == "" {
		return "", errors.New("invalid session cookie")
	}
	return claims.ID, nil
}

type ctxKey struct{}

// WithSession stores s on ctx
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by WithSession
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
