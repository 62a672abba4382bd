package forwarder

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
)

// Claims is the token a trusted forwarder issues per call. Subject carries the
// caller address.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTResolver validates HS256 bearer tokens signed by the trusted forwarder.
type JWTResolver struct {
	signingKey []byte
	issuer     string
	audience   string
	leeway     time.Duration
	now        func() time.Time
}

func NewJWTResolver(signingKey, issuer, audience string) *JWTResolver {
	return &JWTResolver{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		leeway:     5 * time.Second,
		now:        time.Now,
	}
}

// Issue signs a token for caller. Forwarders and tests use it.
func (j *JWTResolver) Issue(caller id.Identity, expiresIn time.Duration) (string, error) {
	now := j.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.String(),
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings{j.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(j.signingKey)
}

func (j *JWTResolver) Resolve(r *http.Request) (id.Identity, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return id.ZeroIdentity, dErrors.New(dErrors.CodeUnauthenticated, "missing bearer token")
	}
	claims, err := j.validate(raw)
	if err != nil {
		return id.ZeroIdentity, err
	}
	caller, err := id.ParseIdentity(claims.Subject)
	if err != nil || caller.IsZero() {
		return id.ZeroIdentity, dErrors.New(dErrors.CodeUnauthenticated, "token subject is not a caller address")
	}
	return caller, nil
}

func (j *JWTResolver) validate(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return j.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(j.leeway),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthenticated, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid token")
	}
	return claims, nil
}
