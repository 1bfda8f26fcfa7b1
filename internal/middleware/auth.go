package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sitejournal/api/internal/database"
	"github.com/sitejournal/api/internal/models"
	"github.com/sitejournal/api/internal/services/oidc"
	"go.uber.org/zap"
)

type contextKey string

const userContextKey contextKey = "user"

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(userContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// Auth validates the bearer token against the configured OIDC provider and
// resolves the journal user, creating one on first sign-in. Every artifact
// row hangs off the user this middleware puts in the context.
func Auth(db *database.DB, oidcProvider *oidc.Provider, jwksManager *oidc.JWKSManager, providerName string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				respondError(w, http.StatusUnauthorized, "Missing or malformed Authorization header")
				return
			}

			ctx := r.Context()
			oidcConfig, err := oidcProvider.GetConfig(ctx, providerName)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "Failed to get OIDC configuration")
				return
			}
			if oidcConfig.JWKSUrl == nil {
				respondError(w, http.StatusInternalServerError, "JWKS URL not configured")
				return
			}

			verifier := oidc.NewVerifier(jwksManager, oidcConfig.Issuer)
			claims, err := verifier.Verify(ctx, tokenString, *oidcConfig.JWKSUrl)
			if err != nil {
				logger.Warn("token_verification_failed",
					zap.Error(err),
					zap.String("issuer", oidcConfig.Issuer),
				)
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			user, err := resolveUser(ctx, database.NewUserRepository(db), claims, logger)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "Failed to resolve user")
				return
			}

			ctx = context.WithValue(ctx, userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// resolveUser loads the user for the token subject, creating the record on
// first sign-in and refreshing email and name when the provider's claims
// moved on.
func resolveUser(ctx context.Context, userRepo *database.UserRepository, claims *models.JWTClaims, logger *zap.Logger) (*models.User, error) {
	user, err := userRepo.GetByProviderID(ctx, claims.Sub)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Error("user_lookup_failed", zap.Error(err))
			return nil, err
		}
		user = &models.User{
			ID:            uuid.New(),
			Email:         claims.Email,
			ProviderID:    &claims.Sub,
			Name:          &claims.Name,
			EmailVerified: true,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			logger.Error("user_create_failed", zap.Error(err))
			return nil, err
		}
		return user, nil
	}

	updateNeeded := false
	if user.Email != claims.Email {
		user.Email = claims.Email
		updateNeeded = true
	}
	if (user.Name == nil && claims.Name != "") || (user.Name != nil && *user.Name != claims.Name) {
		name := claims.Name
		user.Name = &name
		updateNeeded = true
	}
	if updateNeeded {
		// A stale profile is not worth failing the request over.
		if err := userRepo.Update(ctx, user); err != nil {
			logger.Warn("user_profile_refresh_failed", zap.Error(err))
		}
	}
	return user, nil
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	json.NewEncoder(w).Encode(response)
}
