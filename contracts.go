// Package waskit provides the shared contracts for the waskit deployment
// pipeline: signed WebAssembly actor artifacts and the declarative resource
// graph that provisions them behind an HTTP gateway.
//
// The pipeline has two stages:
//
//	waskit build      compile + sign an actor module (Artifact)
//	waskit deploy     plan + apply the resource graph (ChangeSet)
//
// The CLI wires these together; the internal packages implement them.
package waskit

import (
	"sort"
	"strings"
)

// KeyRole identifies which half of the signing identity a key pair plays.
type KeyRole string

const (
	// KeyRoleAccount is the issuer identity that signs claims tokens.
	KeyRoleAccount KeyRole = "account"
	// KeyRoleModule is the subject identity of a single actor module.
	KeyRoleModule KeyRole = "module"
)

// Capability is a namespaced permission an actor module declares needing,
// e.g. "awslambda:runtime" or "wascc:logging". The hosting runtime grants
// only the capabilities embedded in the module's claims token.
type Capability string

// DefaultCapabilities is the capability set signed into an artifact when the
// operator does not override it: event invocation plus logging.
var DefaultCapabilities = []Capability{
	"awslambda:runtime",
	"wascc:logging",
}

// NormalizeCapabilities sorts and de-duplicates a capability set. The signed
// claims token always carries the normalized form so that the artifact hash
// depends only on set membership, not flag order.
func NormalizeCapabilities(caps []Capability) []Capability {
	seen := make(map[Capability]bool, len(caps))
	out := make([]Capability, 0, len(caps))
	for _, c := range caps {
		c = Capability(strings.TrimSpace(string(c)))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Artifact is a signed actor module ready for deployment. Immutable once
// signed; re-signing produces a new ContentHash.
type Artifact struct {
	// UnsignedPath is the compiler's output, before the claims token.
	UnsignedPath string `json:"unsigned_path" yaml:"unsigned_path"`
	// SignedPath is the deployable binary with the embedded claims token.
	SignedPath string `json:"signed_path" yaml:"signed_path"`
	// ContentHash is the hex BLAKE3 digest of the signed binary. The
	// provisioner uses it to decide whether the function needs redeploying.
	ContentHash string `json:"content_hash" yaml:"content_hash"`
	// Capabilities is the normalized capability set in the claims token.
	Capabilities []Capability `json:"capabilities" yaml:"capabilities"`
	// Issuer is the account public key that signed the token.
	Issuer string `json:"issuer" yaml:"issuer"`
	// Subject is the module public key the token is bound to.
	Subject string `json:"subject" yaml:"subject"`
}

// Resource is one declared entity in the desired-state graph: a gateway
// route, a function, a role, a permission grant. Identity is the logical ID;
// edges come from DependsOn plus ${Other.attr} references in Attributes.
type Resource struct {
	ID         string         `yaml:"id" json:"id"`
	Type       string         `yaml:"type" json:"type"`
	Attributes map[string]any `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	DependsOn  []string       `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
}

// Resource types understood by the stub provider. The graph itself is
// type-agnostic; these names only matter to providers and the output
// resolver.
const (
	TypeRestAPI    = "gateway.RestApi"
	TypeRoute      = "gateway.Route"
	TypeDeployment = "gateway.Deployment"
	TypeFunction   = "lambda.Function"
	TypeRole       = "iam.Role"
	TypePermission = "lambda.Permission"
)

// OpKind is the kind of a planned change operation.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Operation is a single planned change against one resource.
type Operation struct {
	Kind     OpKind   `json:"kind"`
	Resource Resource `json:"resource"`
	// Changes lists the attribute paths that differ, for update operations.
	Changes []string `json:"changes,omitempty"`
}

// ChangeSet is an ordered list of operations. Creates and updates appear in
// topological order of the dependency graph; deletes in reverse topological
// order. An empty ChangeSet means the applied state already matches.
type ChangeSet struct {
	Operations []Operation `json:"operations"`
}

// Empty reports whether applying the ChangeSet would be a no-op.
func (c *ChangeSet) Empty() bool { return len(c.Operations) == 0 }

// Counts returns the number of creates, updates and deletes.
func (c *ChangeSet) Counts() (creates, updates, deletes int) {
	for _, op := range c.Operations {
		switch op.Kind {
		case OpCreate:
			creates++
		case OpUpdate:
			updates++
		case OpDelete:
			deletes++
		}
	}
	return
}

// AppliedResource is a resource as last applied. Declared holds the
// attributes exactly as the manifest stated them (reference placeholders
// intact) and is what the planner diffs against; Attributes holds the
// resolved values merged with the identifiers the provider assigned (ARNs,
// IDs, URLs) and is what the output resolver reads.
type AppliedResource struct {
	ID         string         `yaml:"id" json:"id"`
	Type       string         `yaml:"type" json:"type"`
	Declared   map[string]any `yaml:"declared,omitempty" json:"declared,omitempty"`
	Attributes map[string]any `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	DependsOn  []string       `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
}

// Outputs is what the resolver reads out of applied state after a
// successful apply.
type Outputs struct {
	// InvokeURL is the public invocation URL, stage and route path included.
	InvokeURL string `json:"invoke_url" yaml:"invoke_url"`
	// FunctionName is the stable name of the deployed compute function.
	FunctionName string `json:"function_name" yaml:"function_name"`
}

// BuildResult is the JSON output from `waskit build` and `waskit sign`.
type BuildResult struct {
	Success  bool     `json:"success"`
	Artifact Artifact `json:"artifact,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// PlanResult is the JSON output from `waskit plan`.
type PlanResult struct {
	Success bool      `json:"success"`
	Changes ChangeSet `json:"changes"`
	Errors  []string  `json:"errors,omitempty"`
}

// ApplyResult is the JSON output from `waskit deploy` and `waskit destroy`.
type ApplyResult struct {
	Success bool     `json:"success"`
	Applied int      `json:"applied"`
	Outputs *Outputs `json:"outputs,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// ValidateResult is the JSON output from `waskit validate`.
type ValidateResult struct {
	Success   bool     `json:"success"`
	Resources int      `json:"resources"`
	Errors    []string `json:"errors,omitempty"`
}

// ListResult is the JSON output from `waskit list`.
type ListResult struct {
	Resources []ListResource `json:"resources"`
}

// ListResource is a single resource in the list output.
type ListResource struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	DependsOn []string `json:"depends_on,omitempty"`
}
