package builder

import (
	"fmt"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/claims"
	"github.com/waskit/waskit/internal/keys"
	"github.com/waskit/waskit/internal/wasm"
)

// EmbeddedSigner signs modules in-process: it encodes the claims token with
// the account key and embeds it as the module's claims custom section,
// replacing any previous signature.
type EmbeddedSigner struct{}

// Sign implements Signer.
func (EmbeddedSigner) Sign(unsigned []byte, c claims.Claims, account *keys.KeyPair) ([]byte, error) {
	token, err := claims.Encode(c, account)
	if err != nil {
		return nil, err
	}
	signed, err := wasm.AppendCustomSection(unsigned, claims.SectionName, []byte(token))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", waskit.ErrSigningFailed, err)
	}
	return signed, nil
}

// ExtractClaims reads and verifies the claims token embedded in a signed
// module file. Used by `waskit inspect`-style tooling and tests.
func ExtractClaims(signed []byte) (*claims.Claims, error) {
	token, err := wasm.ReadCustomSection(signed, claims.SectionName)
	if err != nil {
		return nil, err
	}
	return claims.Verify(string(token))
}
