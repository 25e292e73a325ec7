package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"ms-booking/internal/config"
	"ms-booking/internal/models"
)

type contextKey string

const claimsKey contextKey = "user_claims"

// Verifier turns a raw bearer token into user claims.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*models.UserClaims, error)
}

// NewVerifier picks the verification mode from config: OIDC discovery when
// an issuer is configured, HS256 shared-secret JWTs otherwise.
func NewVerifier(cfg config.AuthConfig) (Verifier, error) {
	if cfg.OIDCIssuer != "" {
		provider, err := oidc.NewProvider(context.Background(), cfg.OIDCIssuer)
		if err != nil {
			return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
		}
		return &oidcVerifier{
			verifier: provider.Verifier(&oidc.Config{SkipClientIDCheck: true}),
		}, nil
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("neither OIDC_ISSUER nor JWT_SECRET is set")
	}
	return &hmacVerifier{secret: []byte(cfg.JWTSecret)}, nil
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func (v *oidcVerifier) Verify(ctx context.Context, rawToken string) (*models.UserClaims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	var claims models.UserClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}
	if claims.Role == "" {
		claims.Role = models.RoleUser
	}
	return &claims, nil
}

type hmacVerifier struct {
	secret []byte
}

func (v *hmacVerifier) Verify(_ context.Context, rawToken string) (*models.UserClaims, error) {
	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	claims := &models.UserClaims{Role: models.RoleUser}
	if sub, ok := mapClaims["sub"].(string); ok {
		claims.ID = sub
	}
	if role, ok := mapClaims["role"].(string); ok && role != "" {
		claims.Role = role
	}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	if name, ok := mapClaims["name"].(string); ok {
		claims.Name = name
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("subject claim not found in token")
	}
	return claims, nil
}

// Middleware authenticates the request and stores the user claims in the
// request context.
func Middleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				http.Error(w, fmt.Sprintf("invalid token: %v", err), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose authenticated user is not an admin.
// It must run after Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := Claims(r.Context())
		if claims == nil || !claims.IsAdmin() {
			http.Error(w, "admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Claims extracts the authenticated user's claims from the context, or nil.
func Claims(ctx context.Context) *models.UserClaims {
	if claims, ok := ctx.Value(claimsKey).(*models.UserClaims); ok {
		return claims
	}
	return nil
}

// WithClaims returns a context carrying the given claims. Used by tests and
// by the webhook path, which authenticates by signature instead of token.
func WithClaims(ctx context.Context, claims *models.UserClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ExtractTokenFromRequest extracts a bearer token from the Authorization
// header.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("authorization header is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}
