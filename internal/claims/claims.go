// Package claims encodes and verifies the capability claims token embedded
// in signed actor modules.
//
// The token is a JWT with an Ed25519 signature: the issuer is the account
// public key, the subject the module public key, and the private claim block
// carries the capability set plus the digest of the unsigned module. The
// wire form must stay compatible with the runtime host that verifies it at
// load time.
package claims

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/keys"
)

// SectionName is the wasm custom section the token is embedded in.
const SectionName = "jwt"

type header struct {
	Type      string `json:"typ"`
	Algorithm string `json:"alg"`
}

var tokenHeader = header{Type: "jwt", Algorithm: "Ed25519"}

// Actor is the private claim block describing the module.
type Actor struct {
	// Name is the human-readable module name.
	Name string `json:"name,omitempty"`
	// Capabilities the module is authorized to request from its host.
	Capabilities []waskit.Capability `json:"caps"`
	// ModuleHash is the hex BLAKE3 digest of the unsigned module bytes,
	// binding the token to exactly one binary.
	ModuleHash string `json:"hash"`
}

// Claims is the token payload.
type Claims struct {
	// ID is derived from the payload contents rather than drawn from a
	// random source, so signing identical inputs yields an identical token.
	ID       string `json:"jti"`
	Issuer   string `json:"iss"`
	Subject  string `json:"sub"`
	IssuedAt int64  `json:"iat"`
	Actor    Actor  `json:"waskit"`
}

// New assembles the claims for a module: issuer and subject identifiers,
// normalized capability set, and the digest of the unsigned module bytes.
func New(name string, account, module *keys.KeyPair, caps []waskit.Capability, unsigned []byte) (Claims, error) {
	if account.Role() != waskit.KeyRoleAccount {
		return Claims{}, fmt.Errorf("%w: issuer key has role %q, want account", waskit.ErrSigningFailed, account.Role())
	}
	if module.Role() != waskit.KeyRoleModule {
		return Claims{}, fmt.Errorf("%w: subject key has role %q, want module", waskit.ErrSigningFailed, module.Role())
	}

	sum := blake3.Sum256(unsigned)
	c := Claims{
		Issuer:  account.PublicKey(),
		Subject: module.PublicKey(),
		Actor: Actor{
			Name:         name,
			Capabilities: waskit.NormalizeCapabilities(caps),
			ModuleHash:   fmt.Sprintf("%x", sum),
		},
	}
	c.ID = c.deriveID()
	return c, nil
}

// deriveID hashes the identifying payload fields into the token ID.
func (c Claims) deriveID() string {
	h := blake3.New()
	h.Write([]byte(c.Issuer))
	h.Write([]byte(c.Subject))
	h.Write([]byte(c.Actor.ModuleHash))
	for _, cap := range c.Actor.Capabilities {
		h.Write([]byte(cap))
	}
	return fmt.Sprintf("%x", h.Sum(nil)[:16])
}

// Encode signs the claims with the account key and returns the compact
// token form.
func Encode(c Claims, account *keys.KeyPair) (string, error) {
	if account.PublicKey() != c.Issuer {
		return "", fmt.Errorf("%w: signing key %s does not match issuer %s",
			waskit.ErrSigningFailed, account.PublicKey(), c.Issuer)
	}
	hdr, err := json.Marshal(tokenHeader)
	if err != nil {
		return "", fmt.Errorf("%w: %v", waskit.ErrSigningFailed, err)
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("%w: %v", waskit.ErrSigningFailed, err)
	}

	signing := b64(hdr) + "." + b64(payload)
	sig := account.Sign([]byte(signing))
	return signing + "." + b64(sig), nil
}

// Decode parses a token without verifying its signature.
func Decode(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed token: %d segments", len(parts))
	}
	var hdr header
	if err := unb64JSON(parts[0], &hdr); err != nil {
		return nil, fmt.Errorf("malformed token header: %w", err)
	}
	if hdr.Algorithm != tokenHeader.Algorithm {
		return nil, fmt.Errorf("unsupported token algorithm %q", hdr.Algorithm)
	}
	var c Claims
	if err := unb64JSON(parts[1], &c); err != nil {
		return nil, fmt.Errorf("malformed token payload: %w", err)
	}
	return &c, nil
}

// Verify parses a token and checks its signature against the embedded
// issuer key.
func Verify(token string) (*Claims, error) {
	c, err := Decode(token)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(token, ".")
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("malformed token signature: %w", err)
	}
	if err := keys.Verify(c.Issuer, []byte(parts[0]+"."+parts[1]), sig); err != nil {
		return nil, err
	}
	return c, nil
}

func b64(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

func unb64JSON(seg string, v any) error {
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
