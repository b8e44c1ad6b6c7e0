package builder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	waskit "github.com/waskit/waskit"
)

// CargoCompiler invokes the external Rust toolchain to produce a wasm
// binary. The command contract is stable: `cargo build --release --target
// <target>` run in the source directory, output under
// target/<target>/release/*.wasm.
type CargoCompiler struct {
	// Cargo is the binary to invoke. Defaults to "cargo" on PATH.
	Cargo string
	// Target is the wasm target triple. Defaults to wasm32-unknown-unknown.
	Target string
}

// Compile runs the toolchain and copies the produced wasm to outPath.
func (c *CargoCompiler) Compile(ctx context.Context, sourceDir, outPath string) error {
	cargo := c.Cargo
	if cargo == "" {
		cargo = "cargo"
	}
	target := c.Target
	if target == "" {
		target = "wasm32-unknown-unknown"
	}

	if _, err := exec.LookPath(cargo); err != nil {
		return fmt.Errorf("%w: %s not found in PATH", waskit.ErrCompilationFailed, cargo)
	}

	cmd := exec.CommandContext(ctx, cargo, "build", "--release", "--target", target)
	cmd.Dir = sourceDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %v\n%s", waskit.ErrCompilationFailed, err, stderr.String())
	}

	produced, err := findWasm(filepath.Join(sourceDir, "target", target, "release"))
	if err != nil {
		return fmt.Errorf("%w: %v", waskit.ErrCompilationFailed, err)
	}
	if err := copyFile(produced, outPath); err != nil {
		return fmt.Errorf("%w: %v", waskit.ErrCompilationFailed, err)
	}
	return nil
}

// findWasm locates the single wasm binary the toolchain produced.
func findWasm(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.wasm"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no .wasm output in %s", dir)
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("ambiguous .wasm output in %s: %d candidates", dir, len(matches))
	}
	return matches[0], nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
