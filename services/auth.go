package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/krshsl/hireagent/backend/models"
	"github.com/krshsl/hireagent/backend/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

const accessTokenCookie = "access_token"

type contextKey string

const authContextKey contextKey = "auth"

type authInfo struct {
	user   *models.User
	claims *CookieClaims
}

// UserFromContext returns the authenticated customer, if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	info, ok := ctx.Value(authContextKey).(*authInfo)
	if !ok {
		return nil, false
	}
	return info.user, true
}

func claimsFromContext(ctx context.Context) (*CookieClaims, bool) {
	info, ok := ctx.Value(authContextKey).(*authInfo)
	if !ok {
		return nil, false
	}
	return info.claims, true
}

type AuthService struct {
	repo          *repository.GORMRepository
	jwtSecret     []byte
	accessExpiry  time.Duration
	secureCookies bool
}

type CookieClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

func NewAuthService(repo *repository.GORMRepository, cfg JWTConfig) *AuthService {
	expiry := cfg.AccessTTL
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &AuthService{
		repo:          repo,
		jwtSecret:     []byte(cfg.Secret),
		accessExpiry:  expiry,
		secureCookies: os.Getenv("ENVIRONMENT") == "production",
	}
}

// Login authenticates a customer and issues an access token
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	resp, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	slog.Info("User logged in successfully", "user_id", user.ID, "email", user.Email)
	return resp, nil
}

// Signup creates a customer account
func (s *AuthService) Signup(ctx context.Context, email, password, fullName string) (*AuthResponse, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("a valid email is required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	existingUser, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hashedPassword),
		FullName: fullName,
		Role:     "customer",
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	resp, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	slog.Info("User signed up successfully", "user_id", user.ID, "email", user.Email)
	return resp, nil
}

// Logout blacklists the token the request was authenticated with.
func (s *AuthService) Logout(ctx context.Context, claims *CookieClaims) error {
	expiresAt := time.Now().Add(s.accessExpiry)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := s.repo.RevokeToken(ctx, &models.RevokedToken{
		TokenID:   claims.ID,
		UserID:    claims.UserID,
		ExpiresAt: expiresAt,
	}); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	if n, err := s.repo.PurgeRevokedTokens(ctx, time.Now()); err != nil {
		slog.Warn("Failed to purge expired revoked tokens", "error", err)
	} else if n > 0 {
		slog.Debug("Purged expired revoked tokens", "count", n)
	}

	slog.Info("User logged out", "user_id", claims.UserID)
	return nil
}

// VerifyAccessToken verifies the token and loads its user
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (*models.User, *CookieClaims, error) {
	claims := &CookieClaims{}

	parsedToken, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsedToken.Valid {
		return nil, nil, fmt.Errorf("invalid token")
	}

	revoked, err := s.repo.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check token: %w", err)
	}
	if revoked {
		return nil, nil, ErrTokenRevoked
	}

	// Get user from database to ensure they still exist
	user, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil, fmt.Errorf("user not found")
	}

	return user, claims, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResponse, error) {
	now := time.Now()
	expiresAt := now.Add(s.accessExpiry)
	claims := &CookieClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return &AuthResponse{User: user, AccessToken: token, ExpiresAt: expiresAt}, nil
}

// SetAuthCookie sets the HTTP-only access token cookie
func (s *AuthService) SetAuthCookie(w http.ResponseWriter, accessToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.accessExpiry.Seconds()),
	})
}

// ClearAuthCookie expires the access token cookie
func (s *AuthService) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// tokenFromRequest reads a Bearer token, falling back to the cookie.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// OptionalAuth attaches the user to the context when the request carries a
// valid token and lets anonymous requests through untouched.
func (s *AuthService) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := tokenFromRequest(r); token != "" {
			user, claims, err := s.VerifyAccessToken(r.Context(), token)
			if err == nil {
				ctx := context.WithValue(r.Context(), authContextKey, &authInfo{user: user, claims: claims})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			slog.Debug("Ignoring invalid access token", "error", err)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests without a valid token.
func (s *AuthService) RequireAuth(next http.Handler) http.Handler {
	return s.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided"})
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
