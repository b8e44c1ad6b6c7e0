package graph

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Ref is a ${Resource.attribute} reference found in an attribute value.
type Ref struct {
	Resource  string
	Attribute string
}

var refPattern = regexp.MustCompile(`\$\{([A-Za-z][A-Za-z0-9_-]*)\.([A-Za-z][A-Za-z0-9_.-]*)\}`)

// FindRefs walks an attribute value (maps, slices, strings) and returns all
// resource references it contains, sorted and de-duplicated.
func FindRefs(v any) []Ref {
	seen := make(map[Ref]bool)
	walkStrings(v, func(s string) {
		for _, m := range refPattern.FindAllStringSubmatch(s, -1) {
			seen[Ref{Resource: m[1], Attribute: m[2]}] = true
		}
	})
	refs := make([]Ref, 0, len(seen))
	for r := range seen {
		refs = append(refs, r)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Resource != refs[j].Resource {
			return refs[i].Resource < refs[j].Resource
		}
		return refs[i].Attribute < refs[j].Attribute
	})
	return refs
}

// ResolveRefs returns a copy of v with every ${Resource.attribute}
// placeholder replaced via lookup. A placeholder whose target cannot be
// resolved is an error: the provisioner only resolves against resources that
// were applied earlier in topological order.
func ResolveRefs(v any, lookup func(resource, attribute string) (string, bool)) (any, error) {
	switch val := v.(type) {
	case string:
		var resolveErr error
		out := refPattern.ReplaceAllStringFunc(val, func(match string) string {
			m := refPattern.FindStringSubmatch(match)
			resolved, ok := lookup(m[1], m[2])
			if !ok {
				if resolveErr == nil {
					resolveErr = fmt.Errorf("unresolved reference %s", match)
				}
				return match
			}
			return resolved
		})
		return out, resolveErr
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			resolved, err := ResolveRefs(item, lookup)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			resolved, err := ResolveRefs(item, lookup)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

// walkStrings visits every string nested inside v.
func walkStrings(v any, fn func(string)) {
	switch val := v.(type) {
	case string:
		fn(val)
	case map[string]any:
		// Deterministic order is irrelevant here; FindRefs sorts.
		for _, item := range val {
			walkStrings(item, fn)
		}
	case []any:
		for _, item := range val {
			walkStrings(item, fn)
		}
	}
}

// HasRef reports whether s contains any reference placeholder.
func HasRef(s string) bool { return strings.Contains(s, "${") && refPattern.MatchString(s) }
