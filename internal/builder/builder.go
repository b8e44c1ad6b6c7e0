// Package builder produces signed actor module artifacts.
//
// The external toolchain is modeled as two injected collaborators: a
// Compiler that turns source into an unsigned wasm binary, and a Signer that
// embeds the capability claims token. The pipeline itself only sequences
// them, fail-fast, and computes the content hash used downstream for change
// detection.
package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/zeebo/blake3"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/claims"
	"github.com/waskit/waskit/internal/keys"
)

// Compiler compiles actor source into an unsigned wasm binary at outPath.
type Compiler interface {
	Compile(ctx context.Context, sourceDir, outPath string) error
}

// Signer embeds a claims token into an unsigned module and returns the
// signed bytes.
type Signer interface {
	Sign(unsigned []byte, c claims.Claims, account *keys.KeyPair) ([]byte, error)
}

// Options are the inputs for one build.
type Options struct {
	// SourceDir is the actor source tree handed to the compiler.
	SourceDir string
	// Name is the module name recorded in the claims token.
	Name string
	// UnsignedPath and SignedPath are the fixed artifact output paths.
	UnsignedPath string
	SignedPath   string
	// Capabilities to sign into the token; nil means the defaults.
	Capabilities []waskit.Capability
	// Account signs the token; Module is the token's subject.
	Account *keys.KeyPair
	Module  *keys.KeyPair
}

// Pipeline sequences compile, sign and hash. Zero collaborators panic; the
// CLI wires real ones, tests wire fakes.
type Pipeline struct {
	Compiler Compiler
	Signer   Signer
	Logger   *log.Logger
}

// Build compiles the source and signs the result. No retries: the first
// failing stage surfaces as the pipeline error.
func (p *Pipeline) Build(ctx context.Context, opts Options) (waskit.Artifact, error) {
	logger := p.logger()
	logger.Info("compiling actor module", "source", opts.SourceDir)

	if err := os.MkdirAll(filepath.Dir(opts.UnsignedPath), 0o755); err != nil {
		return waskit.Artifact{}, fmt.Errorf("%w: %v", waskit.ErrCompilationFailed, err)
	}
	if err := p.Compiler.Compile(ctx, opts.SourceDir, opts.UnsignedPath); err != nil {
		return waskit.Artifact{}, err
	}

	return p.Sign(ctx, opts)
}

// Sign signs an already-compiled module at opts.UnsignedPath. This is also
// the `waskit sign` entry point for re-signing with a different capability
// set without recompiling.
func (p *Pipeline) Sign(_ context.Context, opts Options) (waskit.Artifact, error) {
	logger := p.logger()

	unsigned, err := os.ReadFile(opts.UnsignedPath)
	if err != nil {
		return waskit.Artifact{}, fmt.Errorf("%w: reading unsigned module: %v", waskit.ErrSigningFailed, err)
	}

	caps := opts.Capabilities
	if caps == nil {
		caps = waskit.DefaultCapabilities
	}
	c, err := claims.New(opts.Name, opts.Account, opts.Module, caps, unsigned)
	if err != nil {
		return waskit.Artifact{}, err
	}

	logger.Info("signing actor module",
		"subject", c.Subject,
		"caps", fmt.Sprint(c.Actor.Capabilities))

	signed, err := p.Signer.Sign(unsigned, c, opts.Account)
	if err != nil {
		return waskit.Artifact{}, err
	}

	if err := os.MkdirAll(filepath.Dir(opts.SignedPath), 0o755); err != nil {
		return waskit.Artifact{}, fmt.Errorf("%w: %v", waskit.ErrSigningFailed, err)
	}
	if err := os.WriteFile(opts.SignedPath, signed, 0o644); err != nil {
		return waskit.Artifact{}, fmt.Errorf("%w: writing signed module: %v", waskit.ErrSigningFailed, err)
	}

	hash := hashBytes(signed)
	logger.Info("artifact signed", "path", opts.SignedPath, "hash", hash[:12])

	return waskit.Artifact{
		UnsignedPath: opts.UnsignedPath,
		SignedPath:   opts.SignedPath,
		ContentHash:  hash,
		Capabilities: c.Actor.Capabilities,
		Issuer:       c.Issuer,
		Subject:      c.Subject,
	}, nil
}

func (p *Pipeline) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}

// HashFile returns the hex BLAKE3 digest of a file. The planner uses it to
// detect whether the deployed function's code changed.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func hashBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return fmt.Sprintf("%x", sum)
}
