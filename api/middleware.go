package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminTokenTTL is how long an issued admin bearer token stays valid
const AdminTokenTTL = 24 * time.Hour

// Admin guards the bulk administration routes. Credentials are checked with
// HTTP basic auth once, after which a bearer token is used.
type Admin struct {
	User         string
	PasswordHash string

	authenticator auth.Authenticator
	cache         store.Cache
}

// NewAdmin sets up go-guardian for user. An empty passwordHash disables every
// admin route.
func NewAdmin(ctx context.Context, user, passwordHash string) *Admin {
	a := &Admin{User: user, PasswordHash: passwordHash}
	a.authenticator = auth.New()
	a.cache = store.NewFIFO(ctx, AdminTokenTTL)
	basicStrategy := basic.New(a.ValidateUser, a.cache)
	tokenStrategy := bearer.New(bearer.NoOpAuthenticate, a.cache)

	a.authenticator.EnableStrategy(basic.StrategyKey, basicStrategy)
	a.authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
	return a
}

// Enabled reports whether admin credentials are configured
func (a *Admin) Enabled() bool {
	return a.PasswordHash != ""
}

// Middleware rejects requests without valid admin credentials
func (a *Admin) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !a.Enabled() {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error": "admin disabled"}`))
			return
		}
		user, err := a.authenticator.Authenticate(r)
		if err != nil {
			zap.S().Warnw("unauthorized admin request",
				"url", r.URL,
				"requestId", RequestID(r.Context()))
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		zap.S().Debugw("admin authenticated", "user", user.UserName())
		next.ServeHTTP(w, r)
	})
}

// CreateToken issues a bearer token. It runs behind Middleware, so the basic
// credentials have already been checked.
func (a *Admin) CreateToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	user, _, ok := r.BasicAuth()
	if !ok {
		http.Error(w, "basic auth failed", http.StatusUnauthorized)
		return
	}

	token := uuid.New().String()
	authUser := auth.NewDefaultUser(user, "admin", nil, nil)
	tokenStrategy := a.authenticator.Strategy(bearer.CachedStrategyKey)
	if err := auth.Append(tokenStrategy, token, authUser, r); err != nil {
		http.Error(w, "failed to store token", http.StatusInternalServerError)
		return
	}

	responseBody, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Write(responseBody)
}

// ValidateUser checks basic credentials against the configured admin
func (a *Admin) ValidateUser(ctx context.Context, r *http.Request, user, password string) (auth.Info, error) {
	if !a.Enabled() {
		return nil, fmt.Errorf("admin disabled")
	}
	userHash := sha256.Sum256([]byte(user))
	expectedHash := sha256.Sum256([]byte(a.User))
	userMatch := subtle.ConstantTimeCompare(userHash[:], expectedHash[:]) == 1

	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("failed to compare password")
	}
	if !userMatch {
		return nil, fmt.Errorf("invalid credentials")
	}
	return auth.NewDefaultUser(user, "admin", nil, nil), nil
}

// RevokeToken revokes the bearer token presented with the request
func (a *Admin) RevokeToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	reqToken := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if reqToken == "" || reqToken == r.Header.Get("Authorization") {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "bearer token required"}`))
		return
	}

	tokenStrategy := a.authenticator.Strategy(bearer.CachedStrategyKey)
	if err := auth.Revoke(tokenStrategy, reqToken, r); err != nil {
		zap.S().Warnw("failed to revoke admin token", "error", err)
	}
	body := fmt.Sprintf(`{"revoked token": "%s"}`, reqToken)
	w.Write([]byte(body))
}
