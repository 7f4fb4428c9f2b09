package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	jwxjwt "github.com/lestrrat-go/jwx/v2/jwt"
)

// Context keys for storing user information
type contextKey string

const (
	UserIDKey contextKey = "user_id"
)

// ErrMissingSubject is returned for tokens without a sub claim
var ErrMissingSubject = errors.New("token has no subject")

// TokenVerifier validates a bearer token and returns the user ID it was issued for
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// HS256Verifier verifies tokens signed with a shared secret
type HS256Verifier struct {
	issuer string
	secret []byte
}

// NewHS256Verifier creates a verifier for HMAC-SHA256 tokens.
// An empty issuer disables the iss check.
func NewHS256Verifier(secret, issuer string) *HS256Verifier {
	return &HS256Verifier{secret: []byte(secret), issuer: issuer}
}

func (v *HS256Verifier) Verify(ctx context.Context, token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("invalid subject: %w", err)
	}
	if sub == "" {
		return "", ErrMissingSubject
	}
	return sub, nil
}

// JWKSVerifier verifies asymmetric (ES256) tokens against a static key set
type JWKSVerifier struct {
	keys   jwk.Set
	issuer string
}

// NewJWKSVerifier creates a verifier for keys. Private keys are reduced to their public halves.
func NewJWKSVerifier(keys jwk.Set, issuer string) (*JWKSVerifier, error) {
	public, err := jwk.PublicSetOf(keys)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key set: %w", err)
	}
	return &JWKSVerifier{keys: public, issuer: issuer}, nil
}

// LoadJWKSVerifier reads a JWKS document from path
func LoadJWKSVerifier(path, issuer string) (*JWKSVerifier, error) {
	keys, err := jwk.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS %s: %w", path, err)
	}
	return NewJWKSVerifier(keys, issuer)
}

func (v *JWKSVerifier) Verify(ctx context.Context, token string) (string, error) {
	opts := []jwxjwt.ParseOption{
		jwxjwt.WithKeySet(v.keys, jws.WithInferAlgorithmFromKey(true), jws.WithRequireKid(false)),
		jwxjwt.WithValidate(true),
		jwxjwt.WithAcceptableSkew(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwxjwt.WithIssuer(v.issuer))
	}

	parsed, err := jwxjwt.Parse([]byte(token), opts...)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if parsed.Expiration().IsZero() {
		return "", errors.New("invalid token: exp claim is required")
	}
	if parsed.Subject() == "" {
		return "", ErrMissingSubject
	}
	return parsed.Subject(), nil
}

// MultiVerifier accepts a token if any of its verifiers accepts it
type MultiVerifier []TokenVerifier

func (m MultiVerifier) Verify(ctx context.Context, token string) (string, error) {
	if len(m) == 0 {
		return "", errors.New("no token verifiers configured")
	}
	var errs []error
	for _, v := range m {
		sub, err := v.Verify(ctx, token)
		if err == nil {
			return sub, nil
		}
		errs = append(errs, err)
	}
	return "", errors.Join(errs...)
}

// AuthMiddleware enforces bearer token authentication for protected routes
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(verifier TokenVerifier, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{verifier: verifier, logger: logger}
}

// RequireAuth middleware ensures the user is authenticated with a valid JWT
// If not authenticated, returns 401
// If authenticated, injects the user ID into context
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeAuthError(w, "Missing Authorization header")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeAuthError(w, "Invalid Authorization header format. Expected: Bearer <token>")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		userID, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			m.logger.WarnContext(r.Context(), "authentication failed",
				"ip", r.RemoteAddr,
				"method", r.Method,
				"path", r.URL.Path,
				"error", err)
			writeAuthError(w, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID extracts the authenticated user ID from the request context
// Returns empty string if not authenticated
func GetUserID(r *http.Request) string {
	return GetUserIDFromContext(r.Context())
}

// GetUserIDFromContext extracts the authenticated user ID from ctx
func GetUserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// SetTestUserID sets the user ID in the context for testing purposes
// This function should ONLY be used in tests to mock authenticated users
func SetTestUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// writeAuthError writes a JSON error response for authentication failures
func writeAuthError(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusUnauthorized, "AuthenticationRequired", message)
}

func writeJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error":   errorType,
		"message": message,
	}); err != nil {
		slog.Error("failed to write error response", "error", err)
	}
}
