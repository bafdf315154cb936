package engine

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/decision-gate/core/pkg/model"
)

// SchemaWriteScope is the single scope required to call register_schema —
// the one ACL check §7 says "the core performs on behalf of the
// transport", everything else being the transport's responsibility.
const SchemaWriteScope = "schema:write"

// SchemaClaims is the bearer assertion register_schema verifies: a narrow
// principal shape carrying just the registered claims and a scope list,
// not a fuller principal/delegation model this one ACL check doesn't need.
type SchemaClaims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes,omitempty"`
}

func (c SchemaClaims) hasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// SchemaACL verifies the bearer token a register_schema caller presents.
// Symmetric (HS256) keying is deliberate: the schema registry ACL is an
// internal, single-issuer check, not a federated identity system — unlike
// pkg/evidence's Ed25519 evidence signatures, which authenticate third-party
// providers.
type SchemaACL struct {
	secret []byte
}

func NewSchemaACL(secret []byte) *SchemaACL {
	return &SchemaACL{secret: secret}
}

// Authorize verifies bearerToken and requires it to carry SchemaWriteScope,
// returning unauthorized (never a raw jwt error) on any failure so callers
// get §7's declared error code regardless of why verification failed.
func (a *SchemaACL) Authorize(bearerToken string) error {
	if bearerToken == "" {
		return model.NewError(model.CodeUnauthorized, "register_schema requires a bearer token")
	}
	token, err := jwt.ParseWithClaims(bearerToken, &SchemaClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, model.NewErrorf(model.CodeUnauthorized, "unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return model.NewErrorf(model.CodeUnauthorized, "invalid bearer token: %v", err)
	}
	claims, ok := token.Claims.(*SchemaClaims)
	if !ok || !claims.hasScope(SchemaWriteScope) {
		return model.NewErrorf(model.CodeUnauthorized, "bearer token lacks required scope %q", SchemaWriteScope)
	}
	return nil
}
