package mockapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"invoiceweb/portal/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenRevoked       = errors.New("token revoked")
)

type account struct {
	user         models.AuthUser
	phone        string
	avatar       string
	passwordHash []byte
	createdAt    time.Time
	lastLoginAt  time.Time
}

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

// tokenClaims carry everything needed to check a token, so a backend built
// with the same secret accepts tokens another process issued. Version is the
// account's sign-out counter; Generation is the access token revocation
// counter.
type tokenClaims struct {
	Kind       string `json:"typ"`
	Role       string `json:"role,omitempty"`
	Version    int    `json:"ver"`
	Generation int    `json:"gen,omitempty"`
	jwt.RegisteredClaims
}

type authContextKey struct{}

type authInfo struct {
	User models.AuthUser
}

// AuthMiddleware rejects calls without a live access token, except for the
// endpoints a signed-out client has to reach.
func (b *Backend) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		info, err := b.verifyAccessToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
			return
		}
		if strings.HasPrefix(r.URL.Path, "/admin/") && info.User.Role != "admin" {
			writeError(w, http.StatusForbidden, "Forbidden", "admin role required")
			return
		}
		ctx := context.WithValue(r.Context(), authContextKey{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func authFromContext(ctx context.Context) (authInfo, bool) {
	info, ok := ctx.Value(authContextKey{}).(authInfo)
	return info, ok
}

func isPublicEndpoint(r *http.Request) bool {
	switch r.URL.Path {
	case "/auth/login", "/auth/register", "/auth/refresh", "/auth/forgot-password", "/auth/reset-password":
		return r.Method == http.MethodPost
	case "/invoices/search":
		return r.Method == http.MethodGet
	default:
		return false
	}
}

func (b *Backend) issueTokens(acc *account) (models.AuthResponse, error) {
	now := b.now()
	b.mu.Lock()
	version, generation := b.versions[acc.user.ID], b.accessGeneration
	b.mu.Unlock()

	access, err := b.sign(tokenClaims{
		Kind:       tokenAccess,
		Role:       acc.user.Role,
		Version:    version,
		Generation: generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acc.user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.accessTTL)),
		},
	})
	if err != nil {
		return models.AuthResponse{}, err
	}
	refresh, err := b.sign(tokenClaims{
		Kind:    tokenRefresh,
		Version: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acc.user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.refreshTTL)),
		},
	})
	if err != nil {
		return models.AuthResponse{}, err
	}

	return models.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(b.accessTTL.Seconds()),
	}, nil
}

func (b *Backend) sign(claims tokenClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

// parseToken checks signature, expiry, kind and the account's sign-out
// counter, and returns the claims with the account they name.
func (b *Backend) parseToken(token, kind string) (*tokenClaims, models.AuthUser, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(b.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, models.AuthUser{}, err
	}
	if claims.Kind != kind {
		return nil, models.AuthUser{}, ErrTokenRevoked
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[claims.Subject]
	if !ok || claims.Version != b.versions[claims.Subject] {
		return nil, models.AuthUser{}, ErrTokenRevoked
	}
	return claims, acc.user, nil
}

func (b *Backend) verifyAccessToken(token string) (authInfo, error) {
	claims, user, err := b.parseToken(token, tokenAccess)
	if err != nil {
		return authInfo{}, err
	}
	b.mu.Lock()
	current := b.accessGeneration
	b.mu.Unlock()
	if claims.Generation != current {
		return authInfo{}, ErrTokenRevoked
	}
	return authInfo{User: user}, nil
}

// RevokeAccessTokens invalidates every issued access token while keeping
// refresh tokens usable, the state a client finds itself in after expiry.
func (b *Backend) RevokeAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accessGeneration++
}

func (b *Backend) findAccountByEmail(email string) (*account, bool) {
	for _, acc := range b.accounts {
		if strings.EqualFold(acc.user.Email, email) {
			return acc, true
		}
	}
	return nil, false
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if errs := required("email", req.Email, "password", req.Password); len(errs) > 0 {
		writeError(w, http.StatusUnprocessableEntity, "Validation failed", errs...)
		return
	}

	b.mu.Lock()
	acc, ok := b.findAccountByEmail(req.Email)
	var hash []byte
	if ok {
		hash = acc.passwordHash
	}
	b.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	b.mu.Lock()
	acc.lastLoginAt = b.now()
	b.mu.Unlock()
	b.respondWithTokens(w, acc, http.StatusOK, "Login successful")
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	errs := required("name", req.Name, "email", req.Email, "password", req.Password)
	if req.Password != "" && len(req.Password) < 6 {
		errs = append(errs, "password: must be at least 6 characters")
	}
	if len(errs) > 0 {
		writeError(w, http.StatusUnprocessableEntity, "Validation failed", errs...)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	b.mu.Lock()
	if _, exists := b.findAccountByEmail(req.Email); exists {
		b.mu.Unlock()
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}
	acc := &account{
		user:         models.AuthUser{ID: newID("user"), Email: req.Email, Name: strings.TrimSpace(req.Name), Role: "user"},
		passwordHash: hash,
		createdAt:    b.now(),
	}
	b.accounts[acc.user.ID] = acc
	b.mu.Unlock()

	b.users.add(acc.profile())
	b.respondWithTokens(w, acc, http.StatusCreated, "Registration successful")
}

func (b *Backend) respondWithTokens(w http.ResponseWriter, acc *account, status int, message string) {
	resp, err := b.issueTokens(acc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	user := acc.user
	resp.User = &user
	writeData(w, status, resp, message)
}

// handleRefresh rotates the refresh token; each one is accepted once per
// backend. The account is not embedded in the response.
func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	claims, _, err := b.parseToken(req.RefreshToken, tokenRefresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	b.mu.Lock()
	_, spent := b.spentRefresh[claims.ID]
	b.spentRefresh[claims.ID] = struct{}{}
	acc := b.accounts[claims.Subject]
	b.mu.Unlock()
	if spent || acc == nil {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	resp, err := b.issueTokens(acc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeData(w, http.StatusOK, resp, "Token refreshed")
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	info, _ := authFromContext(r.Context())
	b.mu.Lock()
	b.versions[info.User.ID]++
	b.mu.Unlock()
	writeData(w, http.StatusOK, nil, "Logged out successfully")
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	info, _ := authFromContext(r.Context())
	b.mu.Lock()
	acc, ok := b.accounts[info.User.ID]
	var current models.CurrentUserInfo
	if ok {
		current = models.CurrentUserInfo{
			ID:             acc.user.ID,
			Email:          acc.user.Email,
			Name:           acc.user.Name,
			Phone:          acc.phone,
			Avatar:         acc.avatar,
			Role:           acc.user.Role,
			OrganizationID: acc.user.OrganizationID,
			LastLoginAt:    acc.lastLoginAt,
		}
	}
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	if org, found := b.organizations.get(current.OrganizationID); found {
		current.OrganizationName = org.Name
	}
	current.Permissions = permissionsFor(current.Role)
	current.Menus = b.menusForRole(current.Role)
	writeData(w, http.StatusOK, current, "")
}

func (b *Backend) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	info, _ := authFromContext(r.Context())
	var req models.ChangePasswordRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if len(req.NewPassword) < 6 {
		writeError(w, http.StatusUnprocessableEntity, "Validation failed", "newPassword: must be at least 6 characters")
		return
	}

	b.mu.Lock()
	acc, ok := b.accounts[info.User.ID]
	var hash []byte
	if ok {
		hash = acc.passwordHash
	}
	b.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(req.CurrentPassword)) != nil {
		writeError(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	if err := b.setPassword(info.User.ID, req.NewPassword); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeData(w, http.StatusOK, nil, "Password changed successfully")
}

// handleForgotPassword answers the same way whether or not the address is
// known.
func (b *Backend) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	b.mu.Lock()
	if acc, ok := b.findAccountByEmail(strings.TrimSpace(req.Email)); ok {
		token := uuid.NewString()
		b.resetTokens[token] = acc.user.ID
		b.logger.Debug("password reset issued", zap.String("user_id", acc.user.ID))
	}
	b.mu.Unlock()
	writeData(w, http.StatusOK, nil, "If the email exists, a reset link has been sent")
}

func (b *Backend) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if len(req.NewPassword) < 6 {
		writeError(w, http.StatusUnprocessableEntity, "Validation failed", "newPassword: must be at least 6 characters")
		return
	}
	b.mu.Lock()
	userID, ok := b.resetTokens[req.Token]
	delete(b.resetTokens, req.Token)
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	if err := b.setPassword(userID, req.NewPassword); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeData(w, http.StatusOK, nil, "Password has been reset")
}

// ResetToken returns the pending reset token of email, standing in for the
// mail a real server would send.
func (b *Backend) ResetToken(email string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.findAccountByEmail(email)
	if !ok {
		return "", false
	}
	for token, userID := range b.resetTokens {
		if userID == acc.user.ID {
			return token, true
		}
	}
	return "", false
}

func (b *Backend) setPassword(userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[userID]
	if !ok {
		return ErrInvalidCredentials
	}
	acc.passwordHash = hash
	return nil
}

func (acc *account) profile() models.User {
	return models.User{
		ID:        acc.user.ID,
		Email:     acc.user.Email,
		Name:      acc.user.Name,
		Phone:     acc.phone,
		Avatar:    acc.avatar,
		Role:      acc.user.Role,
		CreatedAt: acc.createdAt,
	}
}

func permissionsFor(role string) []string {
	switch role {
	case "admin":
		return []string{"invoices.read", "invoices.write", "companies.write", "users.manage", "settings.manage"}
	default:
		return []string{"invoices.read"}
	}
}
