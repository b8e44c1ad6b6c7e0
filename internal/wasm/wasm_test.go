package wasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalModule is a bare wasm header followed by an empty type section.
func minimalModule() []byte {
	m := append([]byte{}, magic...)
	// type section: id 1, size 1, zero entries
	return append(m, 0x01, 0x01, 0x00)
}

func TestAppendAndReadCustomSection(t *testing.T) {
	payload := []byte("signed claims token")

	out, err := AppendCustomSection(minimalModule(), "jwt", payload)
	require.NoError(t, err)
	assert.Greater(t, len(out), len(minimalModule()))

	got, err := ReadCustomSection(out, "jwt")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestAppendReplacesExistingSection(t *testing.T) {
	first, err := AppendCustomSection(minimalModule(), "jwt", []byte("one"))
	require.NoError(t, err)

	second, err := AppendCustomSection(first, "jwt", []byte("two"))
	require.NoError(t, err)

	got, err := ReadCustomSection(second, "jwt")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)

	// Replacing, not accumulating: stripping once removes the only copy.
	stripped, err := StripCustomSection(second, "jwt")
	require.NoError(t, err)
	_, err = ReadCustomSection(stripped, "jwt")
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestAppendPreservesOtherSections(t *testing.T) {
	withOther, err := AppendCustomSection(minimalModule(), "name", []byte("actor"))
	require.NoError(t, err)

	signed, err := AppendCustomSection(withOther, "jwt", []byte("token"))
	require.NoError(t, err)

	name, err := ReadCustomSection(signed, "name")
	require.NoError(t, err)
	assert.Equal(t, []byte("actor"), name)
}

func TestReadMissingSection(t *testing.T) {
	_, err := ReadCustomSection(minimalModule(), "jwt")
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestRejectsNonWasm(t *testing.T) {
	_, err := ReadCustomSection([]byte("#!/bin/sh"), "jwt")
	assert.ErrorIs(t, err, ErrNotWasm)

	_, err = AppendCustomSection([]byte{0x00, 0x61}, "jwt", nil)
	assert.ErrorIs(t, err, ErrNotWasm)
}

func TestTruncatedSection(t *testing.T) {
	m := append([]byte{}, magic...)
	m = append(m, 0x01, 0x7f) // claims 127 bytes, has none
	_, err := ReadCustomSection(m, "jwt")
	assert.Error(t, err)
}

func TestOversizedSectionSize(t *testing.T) {
	// A custom section claiming 2^63 bytes must error, not overflow the
	// bounds arithmetic.
	m := append([]byte{}, magic...)
	m = append(m, 0x00)
	m = appendUleb(m, 1<<63)
	m = append(m, 0x01)

	_, err := ReadCustomSection(m, "jwt")
	assert.Error(t, err)

	_, err = AppendCustomSection(m, "jwt", []byte("token"))
	assert.Error(t, err)
}

func TestOversizedNameLength(t *testing.T) {
	// Valid section envelope whose name length claims 2^63 bytes; the
	// section is skipped as unreadable rather than panicking.
	body := appendUleb(nil, 1<<63)
	body = append(body, 'j')
	m := append([]byte{}, magic...)
	m = append(m, 0x00)
	m = appendUleb(m, uint64(len(body)))
	m = append(m, body...)

	_, err := ReadCustomSection(m, "jwt")
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestUlebRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 16384, 1 << 32} {
		enc := appendUleb(nil, v)
		got, n := readUleb(enc)
		assert.Equal(t, len(enc), n)
		assert.Equal(t, v, got)
	}
}
