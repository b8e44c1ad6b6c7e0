package claims

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/keys"
)

func testKeys(t *testing.T) (account, module *keys.KeyPair) {
	t.Helper()
	account, err := keys.Generate(waskit.KeyRoleAccount)
	require.NoError(t, err)
	module, err = keys.Generate(waskit.KeyRoleModule)
	require.NoError(t, err)
	return account, module
}

func TestEncodeVerifyRoundTrip(t *testing.T) {
	account, module := testKeys(t)

	c, err := New("helloworld", account, module, waskit.DefaultCapabilities, []byte("module bytes"))
	require.NoError(t, err)

	token, err := Encode(c, account)
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(token, ".")))

	got, err := Verify(token)
	require.NoError(t, err)
	assert.Equal(t, account.PublicKey(), got.Issuer)
	assert.Equal(t, module.PublicKey(), got.Subject)
	assert.Equal(t, c.Actor.ModuleHash, got.Actor.ModuleHash)
	assert.Equal(t, []waskit.Capability{"awslambda:runtime", "wascc:logging"}, got.Actor.Capabilities)
}

func TestNewRejectsSwappedRoles(t *testing.T) {
	account, module := testKeys(t)

	_, err := New("x", module, account, nil, nil)
	assert.ErrorIs(t, err, waskit.ErrSigningFailed)
}

func TestEncodeRejectsForeignSigner(t *testing.T) {
	account, module := testKeys(t)
	other, err := keys.Generate(waskit.KeyRoleAccount)
	require.NoError(t, err)

	c, err := New("x", account, module, nil, []byte("m"))
	require.NoError(t, err)

	_, err = Encode(c, other)
	assert.ErrorIs(t, err, waskit.ErrSigningFailed)
}

func TestTokenDeterminism(t *testing.T) {
	account, module := testKeys(t)
	caps := []waskit.Capability{"wascc:logging", "awslambda:runtime"}

	c1, err := New("hello", account, module, caps, []byte("same bytes"))
	require.NoError(t, err)
	c2, err := New("hello", account, module, []waskit.Capability{"awslambda:runtime", "wascc:logging"}, []byte("same bytes"))
	require.NoError(t, err)

	t1, err := Encode(c1, account)
	require.NoError(t, err)
	t2, err := Encode(c2, account)
	require.NoError(t, err)
	assert.Equal(t, t1, t2, "identical inputs must produce identical tokens")
}

func TestCapabilityChangeChangesID(t *testing.T) {
	account, module := testKeys(t)

	c1, err := New("hello", account, module, []waskit.Capability{"awslambda:runtime"}, []byte("m"))
	require.NoError(t, err)
	c2, err := New("hello", account, module, []waskit.Capability{"awslambda:runtime", "wascc:logging"}, []byte("m"))
	require.NoError(t, err)

	assert.NotEqual(t, c1.ID, c2.ID)
	// Key identifiers are unaffected by the capability set.
	assert.Equal(t, c1.Issuer, c2.Issuer)
	assert.Equal(t, c1.Subject, c2.Subject)
}

func TestVerifyRejectsTampering(t *testing.T) {
	account, module := testKeys(t)

	c, err := New("hello", account, module, waskit.DefaultCapabilities, []byte("m"))
	require.NoError(t, err)
	token, err := Encode(c, account)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	_, err = Verify(tampered)
	assert.Error(t, err)

	_, err = Verify("only.two")
	assert.Error(t, err)
}
