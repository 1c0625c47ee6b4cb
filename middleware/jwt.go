package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"pos/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret []byte

// BackofficeSubject subject of tokens issued after a PIN check
const BackofficeSubject = "backoffice"

// Claims backoffice token claims
type Claims struct {
	PinID uint `json:"pin_id"`
	jwt.RegisteredClaims
}

// InitJWT sets the signing secret
func InitJWT(cfg *config.Config) {
	jwtSecret = []byte(cfg.JWT.Secret)
}

// GenerateToken issues a backoffice token bound to the PIN row that was verified
func GenerateToken(pinID uint, expire time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		PinID: pinID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   BackofficeSubject,
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseToken validates a token and returns its claims
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject != BackofficeSubject {
		return nil, errors.New("invalid token subject")
	}
	return claims, nil
}

// publicBackofficePaths backoffice routes reachable without a token
var publicBackofficePaths = []string{
	"/api/backoffice/verify-pin",
	"/api/backoffice/pin-info",
	"/api/backoffice/initialize-pin",
}

// PinLookup returns the id of the active PIN row
type PinLookup func() (uint, error)

// BackofficeAuth checks the Bearer token on backoffice routes. With required
// false a valid token is still parsed into the context but a missing one is
// let through, matching the PIN gate being enforced by the client only.
// When currentPin is set, a token is only accepted while the PIN it was
// issued for is still the active one.
func BackofficeAuth(required bool, currentPin PinLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Backoffice token required"})
				return
			}
			c.Next()
			return
		}

		claims, err := ParseToken(tokenString)
		if err == nil && currentPin != nil {
			err = checkPin(claims, currentPin)
		}
		if err != nil {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired backoffice token"})
				return
			}
			c.Next()
			return
		}

		c.Set("pinID", claims.PinID)
		c.Next()
	}
}

// ErrStalePin the token was issued for a PIN that has since been replaced
var ErrStalePin = errors.New("token issued for a replaced PIN")

func checkPin(claims *Claims, currentPin PinLookup) error {
	id, err := currentPin()
	if err != nil {
		return err
	}
	if id != claims.PinID {
		return ErrStalePin
	}
	return nil
}

// GetBackofficePinID returns the PIN row id of the verified token, 0 if none
func GetBackofficePinID(c *gin.Context) uint {
	if v, ok := c.Get("pinID"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func isPublicPath(path string) bool {
	path = normalizePath(path)
	for _, p := range publicBackofficePaths {
		if matchPath(path, p) {
			return true
		}
	}
	return false
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return strings.TrimSuffix(p, "/")
}

// matchPath reports whether actual matches pattern; ":name" segments match any
// single non-empty segment
func matchPath(actual, pattern string) bool {
	a := splitPath(actual)
	p := splitPath(pattern)
	if len(a) != len(p) {
		return false
	}
	for i := range a {
		if len(p[i]) > 0 && p[i][0] == ':' {
			if a[i] == "" {
				return false
			}
			continue
		}
		if a[i] != p[i] {
			return false
		}
	}
	return true
}

func splitPath(s string) []string {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}
