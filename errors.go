package waskit

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for the pipeline. Every failure surfaced at the CLI
// boundary wraps exactly one of these, so exit codes and the one-line error
// category can be derived with errors.Is.
var (
	// ErrCompilationFailed: the external compiler rejected the source.
	ErrCompilationFailed = errors.New("compilation failed")
	// ErrSigningFailed: the claims token could not be produced or embedded.
	ErrSigningFailed = errors.New("signing failed")

	// ErrKeyNotFound: a required key file does not exist.
	ErrKeyNotFound = errors.New("key not found")
	// ErrKeyGeneration: the secure random source or encoding failed.
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrDependencyCycle: the declared resource graph is not acyclic.
	ErrDependencyCycle = errors.New("dependency cycle")
	// ErrProviderRejected: the provider refused an operation mid-apply.
	// Partially applied state is retained; re-run apply after fixing.
	ErrProviderRejected = errors.New("provider rejected operation")
	// ErrConcurrentModification: another invocation holds the state lock.
	ErrConcurrentModification = errors.New("state is locked by another invocation")
)

// Exit codes per failure kind, reported by the CLI.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitCompile    = 2
	ExitSign       = 3
	ExitKey        = 4
	ExitApply      = 5
	ExitConcurrent = 6
)

// ExitCode maps an error to the CLI exit code for its failure kind.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrCompilationFailed):
		return ExitCompile
	case errors.Is(err, ErrSigningFailed):
		return ExitSign
	case errors.Is(err, ErrKeyNotFound), errors.Is(err, ErrKeyGeneration):
		return ExitKey
	case errors.Is(err, ErrConcurrentModification):
		return ExitConcurrent
	case errors.Is(err, ErrDependencyCycle), errors.Is(err, ErrProviderRejected):
		return ExitApply
	default:
		return ExitFailure
	}
}

// CycleError reports the nodes forming a dependency cycle. It wraps
// ErrDependencyCycle.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrDependencyCycle, joinArrow(e.Cycle))
}

func (e *CycleError) Unwrap() error { return ErrDependencyCycle }

func joinArrow(nodes []string) string {
	out := ""
	for i, n := range nodes {
		if i > 0 {
			out += " -> "
		}
		out += n
	}
	return out
}
