package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bitebliss/bitebliss-engine/pkg/auth/api"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing authorization token")
	ErrInvalidToken = errors.New("invalid authorization token")
)

type Identity struct {
	UserID *uint
	Role   api.Role
}

// Verifier validates HS256 bearer tokens. Tokens signed with the user secret
// identify end users, tokens signed with the admin secret identify operators.
type Verifier struct {
	userSecret  []byte
	adminSecret []byte
	parser      *jwt.Parser
}

func NewVerifier(userSecret, adminSecret string) *Verifier {
	return &Verifier{
		userSecret:  []byte(userSecret),
		adminSecret: []byte(adminSecret),
		parser:      jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})),
	}
}

func (v *Verifier) Verify(authHeader string) (*Identity, error) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, ErrInvalidToken
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if raw == "" {
		return nil, ErrMissingToken
	}

	if len(v.userSecret) > 0 {
		if claims, err := v.parse(raw, v.userSecret); err == nil {
			id, err := userID(claims)
			if err != nil {
				return nil, err
			}
			return &Identity{UserID: &id, Role: api.AuthenticatedRole}, nil
		}
	}

	if len(v.adminSecret) > 0 {
		if claims, err := v.parse(raw, v.adminSecret); err == nil {
			identity := &Identity{Role: api.AdminRole}
			if id, err := userID(claims); err == nil {
				identity.UserID = &id
			}
			return identity, nil
		}
	}

	return nil, ErrInvalidToken
}

func (v *Verifier) parse(raw string, secret []byte) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := v.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt parse: %w", err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func userID(claims jwt.MapClaims) (uint, error) {
	for _, key := range []string{"id", "sub"} {
		switch v := claims[key].(type) {
		case float64:
			if v > 0 {
				return uint(v), nil
			}
		case string:
			id, err := strconv.ParseUint(v, 10, 64)
			if err == nil && id > 0 {
				return uint(id), nil
			}
		}
	}
	return 0, fmt.Errorf("%w: no user id claim", ErrInvalidToken)
}

// Sign issues a token for the given user. Used by tests and tooling.
func Sign(secret string, userID uint) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id": userID,
	})
	return t.SignedString([]byte(secret))
}
