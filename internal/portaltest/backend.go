// Package portaltest runs an in-process stand-in for the PUT Help REST API.
// Access and refresh tokens are HS256 JWTs; each user holds one access token
// and one refresh token at a time, and both rotate on every refresh.
package portaltest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 3 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type User struct {
	ID        int64
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
	Roles     []string
	Active    bool
}

type Backend struct {
	URL string

	server     *httptest.Server
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	routes     []func(chi.Router)

	mu          sync.Mutex
	nextID      int64
	users       map[string]*User
	access      map[string]string
	refresh     map[string]string
	failRefresh bool
	holdRefresh func()

	RefreshCalls atomic.Int64
	Unauthorized atomic.Int64
	SignOutCalls atomic.Int64
}

type Option func(*Backend)

// WithRoutes mounts extra handlers behind bearer authentication.
func WithRoutes(fn func(r chi.Router)) Option {
	return func(b *Backend) {
		if fn != nil {
			b.routes = append(b.routes, fn)
		}
	}
}

func New(t testing.TB, opts ...Option) *Backend {
	t.Helper()
	b := &Backend{
		key:        []byte("portaltest-" + uuid.NewString()),
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		users:      map[string]*User{},
		access:     map[string]string{},
		refresh:    map[string]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	r := chi.NewRouter()
	r.Post("/auth/signin", b.handleSignIn)
	r.Post("/auth/signup", b.handleSignUp)
	r.Post("/auth/refresh", b.handleRefresh)
	r.Post("/auth/signout", b.handleSignOut)
	r.Group(func(r chi.Router) {
		r.Use(b.authenticate)
		r.Get("/auth/me", b.handleMe)
		r.Post("/auth/change-password", b.handleChangePassword)
		for _, mount := range b.routes {
			mount(r)
		}
	})

	b.server = httptest.NewServer(r)
	b.URL = b.server.URL
	t.Cleanup(b.server.Close)
	return b
}

func (b *Backend) Close() {
	b.server.Close()
}

// AddUser registers a user. Roles default to STUDENT.
func (b *Backend) AddUser(user User) User {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	if user.ID == 0 {
		user.ID = b.nextID
	}
	if len(user.Roles) == 0 {
		user.Roles = []string{"STUDENT"}
	}
	if user.Email == "" {
		user.Email = user.Username + "@student.put.poznan.pl"
	}
	user.Active = true
	stored := user
	b.users[user.Username] = &stored
	return user
}

// Issue signs a user in without going through HTTP and returns the token
// pair the client would have received.
func (b *Backend) Issue(username string) (access string, refresh string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(username)
}

func (b *Backend) issueLocked(username string) (string, string) {
	now := time.Now()
	access := b.sign(username, tokenTypeAccess, now.Add(b.accessTTL))
	refresh := b.sign(username, tokenTypeRefresh, now.Add(b.refreshTTL))
	b.access[username] = access
	b.refresh[username] = refresh
	return access, refresh
}

func (b *Backend) sign(username string, tokenType string, expiresAt time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": username,
		"typ": tokenType,
		"jti": uuid.NewString(),
		"iat": time.Now().Unix(),
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString(b.key)
	if err != nil {
		panic(err)
	}
	return signed
}

// IssueExpired is Issue with an access token whose expiry has already
// passed. The server still accepts the refresh token.
func (b *Backend) IssueExpired(username string) (access string, refresh string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, refresh = b.issueLocked(username)
	access = b.sign(username, tokenTypeAccess, time.Now().Add(-time.Minute))
	b.access[username] = access
	return access, refresh
}

// ExpireAccess revokes the user's current access token server side while
// keeping the refresh token usable.
func (b *Backend) ExpireAccess(username string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.access, username)
}

func (b *Backend) AccessToken(username string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.access[username]
}

func (b *Backend) RefreshToken(username string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refresh[username]
}

func (b *Backend) User(username string) (User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	user, ok := b.users[username]
	if !ok {
		return User{}, false
	}
	return *user, true
}

// FailRefresh makes every refresh request fail with 400.
func (b *Backend) FailRefresh(fail bool) {
	b.mu.Lock()
	b.failRefresh = fail
	b.mu.Unlock()
}

// HoldRefresh runs fn inside the refresh handler before tokens are issued.
func (b *Backend) HoldRefresh(fn func()) {
	b.mu.Lock()
	b.holdRefresh = fn
	b.mu.Unlock()
}

// WaitUnauthorized blocks until at least n requests were rejected with 401
// or the timeout passes.
func (b *Backend) WaitUnauthorized(n int64, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if b.Unauthorized.Load() >= n {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return b.Unauthorized.Load() >= n
}

type userKey struct{}

// Username returns the authenticated user of a request handled behind
// WithRoutes.
func Username(r *http.Request) string {
	username, _ := r.Context().Value(userKey{}).(string)
	return username
}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, ok := b.verifyBearer(r)
		if !ok {
			b.Unauthorized.Add(1)
			WriteJSON(w, http.StatusUnauthorized, map[string]any{
				"status":  http.StatusUnauthorized,
				"error":   "Unauthorized",
				"message": "Full authentication is required to access this resource",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, username)))
	})
}

func (b *Backend) verifyBearer(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	username, ok := b.parse(raw, tokenTypeAccess)
	if !ok {
		return "", false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return username, b.access[username] == raw
}

func (b *Backend) parse(raw string, tokenType string) (string, bool) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return b.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", false
	}
	if typ, _ := claims["typ"].(string); typ != tokenType {
		return "", false
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", false
	}
	return subject, true
}

func (b *Backend) authResponse(user *User, access string, refresh string) map[string]any {
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, "ROLE_"+role)
	}
	return map[string]any{
		"accessToken":  access,
		"refreshToken": refresh,
		"type":         "Bearer",
		"id":           user.ID,
		"username":     user.Username,
		"email":        user.Email,
		"roles":        roles,
	}
}

func (b *Backend) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteMessage(w, http.StatusBadRequest, "Error: Malformed request")
		return
	}
	b.mu.Lock()
	user, ok := b.users[req.Username]
	if !ok || !user.Active || user.Password != req.Password {
		b.mu.Unlock()
		WriteMessage(w, http.StatusBadRequest, "Error: Invalid credentials!")
		return
	}
	access, refresh := b.issueLocked(user.Username)
	resp := b.authResponse(user, access, refresh)
	b.mu.Unlock()
	WriteJSON(w, http.StatusOK, resp)
}

func (b *Backend) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteMessage(w, http.StatusBadRequest, "Error: Malformed request")
		return
	}
	b.mu.Lock()
	if _, exists := b.users[req.Username]; exists {
		b.mu.Unlock()
		WriteMessage(w, http.StatusBadRequest, "Error: Username is already taken!")
		return
	}
	for _, user := range b.users {
		if strings.EqualFold(user.Email, req.Email) {
			b.mu.Unlock()
			WriteMessage(w, http.StatusBadRequest, "Error: Email is already in use!")
			return
		}
	}
	b.mu.Unlock()
	b.AddUser(User{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	WriteMessage(w, http.StatusOK, "User registered successfully!")
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.RefreshCalls.Add(1)
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteMessage(w, http.StatusBadRequest, "Error: Malformed request")
		return
	}

	b.mu.Lock()
	hold := b.holdRefresh
	fail := b.failRefresh
	b.mu.Unlock()
	if hold != nil {
		hold()
	}
	if fail {
		WriteMessage(w, http.StatusBadRequest, "Error: Invalid refresh token!")
		return
	}

	username, ok := b.parse(req.RefreshToken, tokenTypeRefresh)
	if !ok {
		WriteMessage(w, http.StatusBadRequest, "Error: Invalid refresh token!")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refresh[username] != req.RefreshToken {
		WriteMessage(w, http.StatusBadRequest, "Error: Refresh token not found or invalid!")
		return
	}
	user, ok := b.users[username]
	if !ok || !user.Active {
		WriteMessage(w, http.StatusBadRequest, "Error: User account is inactive!")
		return
	}
	access, refresh := b.issueLocked(username)
	WriteJSON(w, http.StatusOK, b.authResponse(user, access, refresh))
}

func (b *Backend) handleSignOut(w http.ResponseWriter, r *http.Request) {
	b.SignOutCalls.Add(1)
	if username, ok := b.verifyBearer(r); ok {
		b.mu.Lock()
		delete(b.access, username)
		delete(b.refresh, username)
		b.mu.Unlock()
	}
	WriteMessage(w, http.StatusOK, "User signed out successfully!")
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := b.User(Username(r))
	if !ok {
		WriteMessage(w, http.StatusBadRequest, "Error: User not found.")
		return
	}
	roles := make([]map[string]any, 0, len(user.Roles))
	for i, role := range user.Roles {
		roles = append(roles, map[string]any{"id": i + 1, "name": role})
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"id":        user.ID,
		"username":  user.Username,
		"email":     user.Email,
		"firstName": user.FirstName,
		"lastName":  user.LastName,
		"isActive":  user.Active,
		"roles":     roles,
		"createdAt": "2024-10-01T12:00:00",
	})
}

func (b *Backend) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteMessage(w, http.StatusBadRequest, "Error: Malformed request")
		return
	}
	username := Username(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	user, ok := b.users[username]
	if !ok || user.Password != req.CurrentPassword {
		WriteMessage(w, http.StatusBadRequest, "Error: Current password is incorrect!")
		return
	}
	user.Password = req.NewPassword
	WriteMessage(w, http.StatusOK, "Password changed successfully!")
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"message": message})
}
