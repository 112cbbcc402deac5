package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/identity"
	"github.com/housing/backend/internal/infrastructure/logger"
	"github.com/housing/backend/internal/interfaces/http/dto"
)

// Identity headers and context keys
const (
	UserIDHeader   = "X-User-ID"
	UserRoleHeader = "X-User-Role"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "

	CallerKey = "caller"
)

var errNoIdentity = errors.New("no identity presented")

// Caller is the identity acting on a request
type Caller struct {
	ID   uuid.UUID
	Role identity.Role
}

// IdentityClaims is the token payload when identity is signed. Subject
// carries the identity UUID.
type IdentityClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IdentityConfig selects where the caller identity comes from. An empty
// Secret trusts the X-User-ID/X-User-Role headers, which is only safe
// behind a gateway that sets them.
type IdentityConfig struct {
	Secret string
}

// ResolveIdentity attaches the caller to the request when one is
// presented. Requests without identity pass through; malformed identity is
// rejected.
func ResolveIdentity(cfg IdentityConfig) gin.HandlerFunc {
	secret := []byte(cfg.Secret)
	return func(c *gin.Context) {
		var (
			caller Caller
			err    error
			status = http.StatusBadRequest
			code   = dto.ErrCodeBadRequest
		)
		if len(secret) > 0 {
			caller, err = callerFromToken(c.GetHeader(AuthHeaderKey), secret)
			status, code = http.StatusUnauthorized, dto.ErrCodeUnauthorized
		} else {
			caller, err = callerFromHeaders(c.GetHeader(UserIDHeader), c.GetHeader(UserRoleHeader))
		}
		switch {
		case errors.Is(err, errNoIdentity):
			c.Next()
			return
		case err != nil:
			c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, err.Error(), GetRequestID(c)))
			return
		}

		c.Set(CallerKey, caller)
		ctx := logger.WithIdentity(c.Request.Context(), logger.FromContext(c.Request.Context()),
			caller.ID.String(), string(caller.Role))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireIdentity rejects requests without a caller, or whose role is not
// in roles when roles are given.
func RequireIdentity(roles ...identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := GetCaller(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, "identity is required", GetRequestID(c)))
			return
		}
		if len(roles) > 0 && !hasRole(roles, caller.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "role "+string(caller.Role)+" cannot perform this action", GetRequestID(c)))
			return
		}
		c.Next()
	}
}

// GetCaller returns the caller resolved by ResolveIdentity
func GetCaller(c *gin.Context) (Caller, bool) {
	v, ok := c.Get(CallerKey)
	if !ok {
		return Caller{}, false
	}
	caller, ok := v.(Caller)
	return caller, ok
}

// SignIdentityToken issues a token that ResolveIdentity accepts for caller
func SignIdentityToken(secret string, caller Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := IdentityClaims{
		Role: string(caller.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func callerFromHeaders(rawID, rawRole string) (Caller, error) {
	if rawID == "" && rawRole == "" {
		return Caller{}, errNoIdentity
	}
	return parseCaller(rawID, rawRole)
}

func callerFromToken(header string, secret []byte) (Caller, error) {
	if header == "" {
		return Caller{}, errNoIdentity
	}
	raw, ok := strings.CutPrefix(header, BearerPrefix)
	if !ok || raw == "" {
		return Caller{}, errors.New("invalid authorization header format")
	}

	claims := &IdentityClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Caller{}, errors.New("invalid identity token")
	}
	return parseCaller(claims.Subject, claims.Role)
}

func parseCaller(rawID, rawRole string) (Caller, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return Caller{}, errors.New("identity must be a UUID")
	}
	role, err := identity.ParseRole(rawRole)
	if err != nil {
		return Caller{}, errors.New("unknown role " + strings.TrimSpace(rawRole))
	}
	return Caller{ID: id, Role: role}, nil
}

func hasRole(roles []identity.Role, role identity.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
