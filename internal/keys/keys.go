// Package keys manages the account and module signing identities.
//
// Key pairs are Ed25519, encoded in the prefixed-base32 form the actor
// runtime host expects: public keys start with "A" (account) or "M" (module),
// seeds with "SA"/"SM". Seeds are persisted as plain secret strings on disk;
// encryption at rest is deliberately out of scope for this tool.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	waskit "github.com/waskit/waskit"
)

// Prefix bytes for the base32 encoding. The values are chosen so the first
// character of the encoded form is the role letter.
const (
	prefixAccount byte = 0       // 'A'
	prefixModule  byte = 12 << 3 // 'M'
	prefixSeed    byte = 18 << 3 // 'S'
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// KeyPair is a role-tagged Ed25519 identity.
type KeyPair struct {
	role waskit.KeyRole
	priv ed25519.PrivateKey
}

// Generate creates a new key pair for the given role from a cryptographically
// secure random seed. Uniqueness beyond the entropy guarantee is not
// enforced.
func Generate(role waskit.KeyRole) (*KeyPair, error) {
	if _, err := rolePrefix(role); err != nil {
		return nil, err
	}
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("%w: %v", waskit.ErrKeyGeneration, err)
	}
	return &KeyPair{role: role, priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// FromSeed reconstructs a key pair from an encoded seed string.
func FromSeed(seed string) (*KeyPair, error) {
	role, raw, err := decodeSeed(strings.TrimSpace(seed))
	if err != nil {
		return nil, err
	}
	return &KeyPair{role: role, priv: ed25519.NewKeyFromSeed(raw)}, nil
}

// Load reads an encoded seed from a key file. A missing file is reported as
// waskit.ErrKeyNotFound so callers can distinguish it from corrupt material.
func Load(path string) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", waskit.ErrKeyNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	return FromSeed(string(data))
}

// Save writes the encoded seed to path with owner-only permissions. The seed
// is plain secret material; protecting the file is the operator's problem.
func (k *KeyPair) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(k.Seed()+"\n"), 0o600)
}

// Role returns the key's role.
func (k *KeyPair) Role() waskit.KeyRole { return k.role }

// Seed returns the encoded seed string ("SA…" or "SM…").
func (k *KeyPair) Seed() string {
	p, _ := rolePrefix(k.role)
	return encodeSeed(p, k.priv.Seed())
}

// PublicKey returns the encoded public identifier ("A…" or "M…").
func (k *KeyPair) PublicKey() string {
	p, _ := rolePrefix(k.role)
	return encode(p, k.priv.Public().(ed25519.PublicKey))
}

// Sign signs msg with the private key.
func (k *KeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.priv, msg)
}

// Verify checks sig over msg against an encoded public key of any role.
func Verify(publicKey string, msg, sig []byte) error {
	raw, err := decode(publicKey)
	if err != nil {
		return err
	}
	if !ed25519.Verify(ed25519.PublicKey(raw), msg, sig) {
		return fmt.Errorf("invalid signature for %s", publicKey)
	}
	return nil
}

func rolePrefix(role waskit.KeyRole) (byte, error) {
	switch role {
	case waskit.KeyRoleAccount:
		return prefixAccount, nil
	case waskit.KeyRoleModule:
		return prefixModule, nil
	default:
		return 0, fmt.Errorf("%w: unknown role %q", waskit.ErrKeyGeneration, role)
	}
}

func roleFromPrefix(p byte) (waskit.KeyRole, error) {
	switch p {
	case prefixAccount:
		return waskit.KeyRoleAccount, nil
	case prefixModule:
		return waskit.KeyRoleModule, nil
	default:
		return "", fmt.Errorf("unknown key prefix byte %d", p)
	}
}

// encode produces prefix || payload || crc16, base32 without padding.
func encode(prefix byte, payload []byte) string {
	buf := make([]byte, 0, len(payload)+3)
	buf = append(buf, prefix)
	buf = append(buf, payload...)
	crc := crc16(buf)
	buf = append(buf, byte(crc&0xff), byte(crc>>8))
	return b32.EncodeToString(buf)
}

// encodeSeed folds the role prefix into the two leading bytes so the encoded
// form reads "S" followed by the role letter.
func encodeSeed(rp byte, seed []byte) string {
	b1 := prefixSeed | (rp >> 5)
	b2 := (rp & 0x1f) << 3
	buf := make([]byte, 0, len(seed)+4)
	buf = append(buf, b1, b2)
	buf = append(buf, seed...)
	crc := crc16(buf)
	buf = append(buf, byte(crc&0xff), byte(crc>>8))
	return b32.EncodeToString(buf)
}

func decode(s string) ([]byte, error) {
	raw, err := b32.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("malformed key %q: %w", s, err)
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("malformed key %q: too short", s)
	}
	body, sum := raw[:len(raw)-2], raw[len(raw)-2:]
	crc := uint16(sum[0]) | uint16(sum[1])<<8
	if crc16(body) != crc {
		return nil, fmt.Errorf("malformed key %q: checksum mismatch", s)
	}
	return body[1:], nil
}

func decodeSeed(s string) (waskit.KeyRole, []byte, error) {
	raw, err := b32.DecodeString(s)
	if err != nil {
		return "", nil, fmt.Errorf("malformed seed: %w", err)
	}
	if len(raw) < 5 {
		return "", nil, fmt.Errorf("malformed seed: too short")
	}
	body, sum := raw[:len(raw)-2], raw[len(raw)-2:]
	crc := uint16(sum[0]) | uint16(sum[1])<<8
	if crc16(body) != crc {
		return "", nil, fmt.Errorf("malformed seed: checksum mismatch")
	}
	if body[0]&0xf8 != prefixSeed {
		return "", nil, fmt.Errorf("malformed seed: not a seed")
	}
	rp := (body[0]&0x07)<<5 | (body[1] >> 3)
	role, err := roleFromPrefix(rp)
	if err != nil {
		return "", nil, fmt.Errorf("malformed seed: %w", err)
	}
	seed := body[2:]
	if len(seed) != ed25519.SeedSize {
		return "", nil, fmt.Errorf("malformed seed: bad length %d", len(seed))
	}
	return role, seed, nil
}

// crc16 is CRC-16/XMODEM (poly 0x1021, init 0), the checksum the host's key
// format appends.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
