// Package wasm reads and writes WebAssembly custom sections.
//
// Only the envelope of the binary format is touched: the module is treated as
// an opaque sequence of sections, and claims tokens travel in a custom
// section whose layout must stay byte-for-byte compatible with the runtime
// host that loads and verifies signed modules.
package wasm

import (
	"errors"
	"fmt"
)

var magic = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// ErrNotWasm is returned when the input does not start with the wasm
// magic and version.
var ErrNotWasm = errors.New("not a WebAssembly module")

// ErrSectionNotFound is returned when the named custom section is absent.
var ErrSectionNotFound = errors.New("custom section not found")

const customSectionID = 0

// AppendCustomSection returns a copy of module with a custom section named
// name holding payload appended. Any existing custom section with the same
// name is removed first, so re-signing replaces rather than accumulates.
func AppendCustomSection(module []byte, name string, payload []byte) ([]byte, error) {
	stripped, err := StripCustomSection(module, name)
	if err != nil && !errors.Is(err, ErrSectionNotFound) {
		return nil, err
	}
	if stripped != nil {
		module = stripped
	}

	body := make([]byte, 0, len(name)+len(payload)+5)
	body = appendUleb(body, uint64(len(name)))
	body = append(body, name...)
	body = append(body, payload...)

	out := make([]byte, 0, len(module)+len(body)+6)
	out = append(out, module...)
	out = append(out, customSectionID)
	out = appendUleb(out, uint64(len(body)))
	out = append(out, body...)
	return out, nil
}

// ReadCustomSection returns the payload of the named custom section.
func ReadCustomSection(module []byte, name string) ([]byte, error) {
	var payload []byte
	found := false
	err := walkSections(module, func(id byte, body []byte) {
		if id != customSectionID || found {
			return
		}
		n, rest, ok := readName(body)
		if ok && n == name {
			payload = rest
			found = true
		}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrSectionNotFound, name)
	}
	return payload, nil
}

// StripCustomSection returns a copy of module without the named custom
// section, or ErrSectionNotFound if it was not present.
func StripCustomSection(module []byte, name string) ([]byte, error) {
	if len(module) < len(magic) {
		return nil, ErrNotWasm
	}
	out := make([]byte, 0, len(module))
	out = append(out, module[:len(magic)]...)
	found := false

	err := walkSectionsRaw(module, func(id byte, raw, body []byte) {
		if id == customSectionID {
			if n, _, ok := readName(body); ok && n == name {
				found = true
				return
			}
		}
		out = append(out, raw...)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrSectionNotFound, name)
	}
	return out, nil
}

// walkSections calls fn for each section's id and body.
func walkSections(module []byte, fn func(id byte, body []byte)) error {
	return walkSectionsRaw(module, func(id byte, _, body []byte) { fn(id, body) })
}

// walkSectionsRaw also passes the raw encoded section (header included).
func walkSectionsRaw(module []byte, fn func(id byte, raw, body []byte)) error {
	if len(module) < len(magic) {
		return ErrNotWasm
	}
	for i := range magic {
		if module[i] != magic[i] {
			return ErrNotWasm
		}
	}
	rest := module[len(magic):]
	for len(rest) > 0 {
		id := rest[0]
		size, n := readUleb(rest[1:])
		if n == 0 {
			return fmt.Errorf("truncated section header")
		}
		header := 1 + n
		// Bound the size before converting so a crafted value never wraps
		// negative.
		if size > uint64(len(rest)-header) {
			return fmt.Errorf("truncated section body (id %d)", id)
		}
		end := header + int(size)
		fn(id, rest[:end], rest[header:end])
		rest = rest[end:]
	}
	return nil
}

// readName decodes the uleb-prefixed section name, returning the remainder.
func readName(body []byte) (string, []byte, bool) {
	n, used := readUleb(body)
	if used == 0 || n > uint64(len(body)-used) {
		return "", nil, false
	}
	return string(body[used : used+int(n)]), body[used+int(n):], true
}

func appendUleb(out []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func readUleb(in []byte) (uint64, int) {
	var v uint64
	var shift uint
	for i, b := range in {
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, i + 1
		}
		shift += 7
		if shift > 63 {
			return 0, 0
		}
	}
	return 0, 0
}
