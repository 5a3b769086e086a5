package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// identityKey stores the caller's types.Identity on the gin context.
const identityKey = "identity"

var errAuthDisabled = errors.New("authentication is not configured")

// Claims are the bearer token claims issued by the credential service. The
// subject is the user id.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 bearer tokens.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier creates a verifier. An empty secret disables authentication:
// every token is rejected.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Enabled reports whether a secret is configured.
func (v *Verifier) Enabled() bool { return len(v.secret) > 0 }

// Verify parses token and returns the identity it asserts.
func (v *Verifier) Verify(token string) (types.Identity, error) {
	if !v.Enabled() {
		return types.Identity{}, errAuthDisabled
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return types.Identity{}, fmt.Errorf("%w: %v", types.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return types.Identity{}, fmt.Errorf("%w: token has no subject", types.ErrUnauthorized)
	}
	return types.Identity{ID: claims.Subject, Name: claims.Name, Email: claims.Email}, nil
}

// Sign issues a token for id. The credential service owns issuance in
// production; this exists for tooling and tests.
func (v *Verifier) Sign(id types.Identity, ttl time.Duration) (string, error) {
	if !v.Enabled() {
		return "", errAuthDisabled
	}
	now := v.now()
	claims := Claims{
		Name:  id.Name,
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Authenticate rejects requests without a valid bearer token.
func Authenticate(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		id, err := v.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if id, err := v.Verify(token); err == nil {
				c.Set(identityKey, id)
			}
		}
		c.Next()
	}
}

// IdentityFrom returns the caller, or nil for anonymous requests.
func IdentityFrom(c *gin.Context) *types.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, ok := v.(types.Identity)
	if !ok {
		return nil
	}
	return &id
}

// MustIdentity returns the caller on routes behind Authenticate.
func MustIdentity(c *gin.Context) types.Identity {
	if id := IdentityFrom(c); id != nil {
		return *id
	}
	return types.Identity{}
}

// bearerToken reads the Authorization header, falling back to a token
// query parameter for WebSocket upgrades, which cannot set headers.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.Query("token")
}
