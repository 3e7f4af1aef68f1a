package middleware

// Staff sessions are HS256 JWTs minted by the auth service at login. Access
// tokens open the /v1 API; refresh tokens are only good at /v1/auth/refresh
// and are turned away here.

import (
	"net/http"
	"strings"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/apierror"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const ClaimsKey = "claims"

// JWTClaims identify the admin, teknisi or kasir behind a request.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims

	// StaffID is UserID, parsed once by JWTAuth.
	StaffID uuid.UUID `json:"-"`
}

func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return tok, tok != ""
}

// JWTAuth admits requests carrying a valid access token.
func JWTAuth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	keyFunc := func(*jwt.Token) (interface{}, error) { return key, nil }
	hs256 := jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})

	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Authentication required"))
			return
		}

		claims := &JWTClaims{}
		if _, err := jwt.ParseWithClaims(raw, claims, keyFunc, hs256); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Invalid or expired token"))
			return
		}
		if claims.TokenUse != model.TokenAccess {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Access token required"))
			return
		}
		id, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Invalid or expired token"))
			return
		}
		claims.StaffID = id

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole lets through only the listed staff roles. Denials are logged
// with the staff member so misconfigured accounts show up in the logs.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !allowed[claims.Role] {
			withStaff(log.Warn(), c).Msg("role not allowed")
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Insufficient permissions"))
			return
		}
		c.Next()
	}
}

// GetClaims returns the verified claims, or nil on a public route.
func GetClaims(c *gin.Context) *JWTClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}
