package waskit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"compile", fmt.Errorf("%w: cargo exited 101", ErrCompilationFailed), ExitCompile},
		{"sign", fmt.Errorf("%w: bad key role", ErrSigningFailed), ExitSign},
		{"key missing", fmt.Errorf("account key: %w", ErrKeyNotFound), ExitKey},
		{"key generation", ErrKeyGeneration, ExitKey},
		{"cycle", &CycleError{Cycle: []string{"A", "B", "A"}}, ExitApply},
		{"provider", fmt.Errorf("%w: create HelloFunction", ErrProviderRejected), ExitApply},
		{"concurrent", ErrConcurrentModification, ExitConcurrent},
		{"unclassified", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestCycleError(t *testing.T) {
	err := &CycleError{Cycle: []string{"A", "B", "A"}}

	assert.True(t, errors.Is(err, ErrDependencyCycle))
	assert.Contains(t, err.Error(), "A -> B -> A")
}

func TestNormalizeCapabilities(t *testing.T) {
	got := NormalizeCapabilities([]Capability{"wascc:logging", "awslambda:runtime", "wascc:logging", " "})

	assert.Equal(t, []Capability{"awslambda:runtime", "wascc:logging"}, got)
}

func TestChangeSetCounts(t *testing.T) {
	cs := ChangeSet{Operations: []Operation{
		{Kind: OpCreate},
		{Kind: OpCreate},
		{Kind: OpUpdate},
		{Kind: OpDelete},
	}}

	creates, updates, deletes := cs.Counts()
	assert.Equal(t, 2, creates)
	assert.Equal(t, 1, updates)
	assert.Equal(t, 1, deletes)
	assert.False(t, cs.Empty())
}
