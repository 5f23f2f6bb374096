package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"fabritrack/apperr"
	"fabritrack/models"
	"fabritrack/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
)

// JWT claims
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

const TokenTTL = 7 * 24 * time.Hour

type contextKey string

const claimsKey contextKey = "claims"

// RoleSource resolves the current stored record for a claimed email.
// Privilege checks always go through this rather than trusting the
// role embedded in the token.
type RoleSource interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Guard holds the shared secret and the injected role source.
type Guard struct {
	Secret []byte
	Users  RoleSource
}

// SignToken issues a 7-day token carrying the identity claims.
func (g *Guard) SignToken(email, role string) (string, error) {
	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.Secret)
}

// Authenticate verifies the bearer credential. A missing or garbled
// header is "not logged in" (401); a failed signature or expiry is a
// bad token (403). Callers downstream read the claims from context.
func (g *Guard) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		header := r.Header.Get("Authorization")
		if header == "" {
			utils.RespondAppError(w, apperr.New(apperr.Unauthenticated, "Missing token"))
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			utils.RespondAppError(w, apperr.New(apperr.Unauthenticated, "Invalid token format"))
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(header[7:], claims, func(token *jwt.Token) (any, error) {
			return g.Secret, nil
		})
		if err != nil || !token.Valid {
			utils.RespondAppError(w, apperr.New(apperr.InvalidCredential, "Invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next(w, r.WithContext(ctx), ps)
	}
}

// RequireAdmin allows only an active admin through. The role and
// status are re-fetched from storage so a stale token cannot keep a
// suspended admin privileged.
func (g *Guard) RequireAdmin(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		user, err := g.currentUser(r)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		if !user.IsAdmin() {
			utils.RespondAppError(w, apperr.New(apperr.Forbidden, "Admin only"))
			return
		}
		next(w, r, ps)
	}
}

// RequireManagerOrAdmin allows an active manager or admin through.
func (g *Guard) RequireManagerOrAdmin(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		user, err := g.currentUser(r)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		if !user.CanModerate() {
			utils.RespondAppError(w, apperr.New(apperr.Forbidden, "Manager only"))
			return
		}
		next(w, r, ps)
	}
}

func (g *Guard) currentUser(r *http.Request) (*models.User, error) {
	claims := ClaimsFromRequest(r)
	if claims == nil {
		return nil, apperr.New(apperr.Unauthenticated, "Missing token")
	}
	user, err := g.Users.FindByEmail(r.Context(), claims.Email)
	if apperr.KindOf(err) == apperr.NotFound {
		return nil, apperr.New(apperr.Forbidden, "Account not found")
	}
	if err != nil {
		// store outage, not an authorization decision
		return nil, err
	}
	return user, nil
}

// ResolveIdentity returns the caller's current stored record. Handlers
// that make per-record ownership decisions use this instead of the
// token's embedded role.
func (g *Guard) ResolveIdentity(r *http.Request) (*models.User, error) {
	return g.currentUser(r)
}

func ClaimsFromRequest(r *http.Request) *Claims {
	claims, ok := r.Context().Value(claimsKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}

func EmailFromRequest(r *http.Request) string {
	if claims := ClaimsFromRequest(r); claims != nil {
		return claims.Email
	}
	return ""
}

// Chain composes middleware right to left around a handler.
func Chain(wrappers ...func(httprouter.Handle) httprouter.Handle) func(httprouter.Handle) httprouter.Handle {
	return func(final httprouter.Handle) httprouter.Handle {
		for i := len(wrappers) - 1; i >= 0; i-- {
			final = wrappers[i](final)
		}
		return final
	}
}
