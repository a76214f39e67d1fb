package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"

	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/orderview"
)

const viewerKey = "viewer"

// Claims are the bearer token claims issued by the token-exchange relay.
// Subject carries the user id.
type Claims struct {
	Email string `json:"email"`
	Admin bool   `json:"admin"`
	jwt.StandardClaims
}

var logger = logging.NewLogger("middleware")

// Auth verifies HS256 bearer tokens and attaches the viewer to the request.
// With an empty secret every request is rejected. Browsers' EventSource
// cannot set headers, so an access_token query parameter is also accepted.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		if len(key) == 0 {
			logger.Error("JWT secret not configured, rejecting request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return key, nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(viewerKey, &orderview.Viewer{
			ID:    claims.Subject,
			Email: claims.Email,
			Admin: claims.Admin,
		})
		c.Next()
	}
}

// RequireAdmin rejects viewers without the admin claim.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		v := ViewerFrom(c)
		if v == nil || !v.Admin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

// ViewerFrom returns the authenticated viewer, or nil.
func ViewerFrom(c *gin.Context) *orderview.Viewer {
	v, ok := c.Get(viewerKey)
	if !ok {
		return nil
	}
	viewer, _ := v.(*orderview.Viewer)
	return viewer
}

// SetViewer attaches viewer to c.
func SetViewer(c *gin.Context, viewer *orderview.Viewer) {
	c.Set(viewerKey, viewer)
}

// IssueToken signs a token for userID. Used by tooling and tests; production
// tokens come from the relay.
func IssueToken(secret, userID, email string, admin bool, ttl time.Duration) (string, error) {
	claims := &Claims{
		Email: email,
		Admin: admin,
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(ttl).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}
	return c.Query("access_token")
}
