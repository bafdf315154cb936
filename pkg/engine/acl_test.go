package engine_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/decision-gate/core/pkg/engine"
	"github.com/decision-gate/core/pkg/model"
)

func signedToken(t *testing.T, secret []byte, scopes []string) string {
	t.Helper()
	claims := engine.SchemaClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Scopes: scopes,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return tok
}

func TestSchemaACL_AuthorizesTokenWithRequiredScope(t *testing.T) {
	secret := []byte("test-secret")
	acl := engine.NewSchemaACL(secret)
	token := signedToken(t, secret, []string{engine.SchemaWriteScope})
	require.NoError(t, acl.Authorize(token))
}

func TestSchemaACL_RejectsMissingScope(t *testing.T) {
	secret := []byte("test-secret")
	acl := engine.NewSchemaACL(secret)
	token := signedToken(t, secret, []string{"some:other:scope"})
	err := acl.Authorize(token)
	require.Error(t, err)
	var gerr *model.GateError
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, model.CodeUnauthorized, gerr.Code)
}

func TestSchemaACL_RejectsWrongKey(t *testing.T) {
	acl := engine.NewSchemaACL([]byte("correct-secret"))
	token := signedToken(t, []byte("wrong-secret"), []string{engine.SchemaWriteScope})
	err := acl.Authorize(token)
	require.Error(t, err)
}

func TestSchemaACL_RejectsEmptyToken(t *testing.T) {
	acl := engine.NewSchemaACL([]byte("secret"))
	err := acl.Authorize("")
	require.Error(t, err)
	var gerr *model.GateError
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, model.CodeUnauthorized, gerr.Code)
}
