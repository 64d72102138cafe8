package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sellerops/console/internal/infrastructure/auth"
	"github.com/sellerops/console/internal/infrastructure/logger"
	"github.com/sellerops/console/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	OperatorKey   = "operator"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// SkipPaths are paths that don't require authentication
	SkipPaths []string
	Logger    *zap.Logger
}

// DefaultJWTConfig returns default JWT middleware configuration
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths:  []string{"/health", "/api/v1/health"},
	}
}

// JWTAuth validates the bearer token and stores the claims and the
// operator name on the gin context.
func JWTAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		header := c.GetHeader(AuthHeaderKey)
		token, ok := strings.CutPrefix(header, BearerPrefix)
		if !ok || strings.TrimSpace(token) == "" {
			abortAuth(c, log, auth.ErrInvalidToken, "missing bearer token")
			return
		}

		claims, err := cfg.JWTService.Validate(strings.TrimSpace(token))
		if err != nil {
			abortAuth(c, log, err, "token validation failed")
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(OperatorKey, claims.Operator)

		ctx := c.Request.Context()
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(zap.String("operator", claims.Operator)))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireScope rejects requests whose token lacks scope. It must run after
// JWTAuth.
func RequireScope(scope auth.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.Set("error_code", dto.ErrCodeInvalidToken)
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewCodeResponse(dto.ErrCodeInvalidToken, "authentication required", GetRequestID(c)))
			return
		}
		if !claims.HasScope(scope) {
			c.Set("error_code", dto.ErrCodeForbidden)
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewCodeResponse(dto.ErrCodeForbidden, "token lacks scope "+string(scope), GetRequestID(c)))
			return
		}
		c.Next()
	}
}

func abortAuth(c *gin.Context, log *zap.Logger, err error, message string) {
	log.Warn("JWT authentication failed",
		zap.Error(err),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path),
	)

	code, details := dto.ErrCodeInvalidToken, "invalid token"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, details = dto.ErrCodeTokenExpired, "token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		details = "token is not yet valid"
	case errors.Is(err, auth.ErrMissingOperator), errors.Is(err, auth.ErrInvalidClaims):
		details = "token claims are incomplete"
	}
	c.Set("error_code", code)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewCodeResponse(code, details, GetRequestID(c)))
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetOperator returns the authenticated operator, or "" outside JWTAuth.
func GetOperator(c *gin.Context) string {
	return c.GetString(OperatorKey)
}
