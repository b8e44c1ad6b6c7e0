package provisioner

import (
	"context"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"

	waskit "github.com/waskit/waskit"
)

// StubProvider synthesizes provider-assigned identifiers locally instead of
// calling a cloud API. Identifiers are derived from resource names, so
// repeated runs assign the same values and plans stay stable. It stands in
// for a real provider during development and in tests; the Provider
// interface is the seam a cloud-backed implementation slots into.
type StubProvider struct {
	// Region appears in synthesized ARNs and URLs.
	Region string
	// AccountID appears in synthesized ARNs. Defaults to a zero account.
	AccountID string
}

func (s *StubProvider) region() string {
	if s.Region == "" {
		return "us-east-1"
	}
	return s.Region
}

func (s *StubProvider) account() string {
	if s.AccountID == "" {
		return "000000000000"
	}
	return s.AccountID
}

// Create implements Provider.
func (s *StubProvider) Create(_ context.Context, res waskit.Resource) (map[string]any, error) {
	switch res.Type {
	case waskit.TypeRole:
		name, err := attrString(res, "name")
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"arn": fmt.Sprintf("arn:aws:iam::%s:role/%s", s.account(), name),
		}, nil

	case waskit.TypeFunction:
		name, err := attrString(res, "name")
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"arn": fmt.Sprintf("arn:aws:lambda:%s:%s:function:%s", s.region(), s.account(), name),
		}, nil

	case waskit.TypeRestAPI:
		name, err := attrString(res, "name")
		if err != nil {
			return nil, err
		}
		id := stableID(name)
		return map[string]any{
			"id":               id,
			"root_resource_id": stableID(name + "/root"),
		}, nil

	case waskit.TypeRoute:
		apiID, err := attrString(res, "rest_api")
		if err != nil {
			return nil, err
		}
		path, err := attrString(res, "path")
		if err != nil {
			return nil, err
		}
		method, err := attrString(res, "method")
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"arn": fmt.Sprintf("arn:aws:execute-api:%s:%s:%s/*/%s/%s",
				s.region(), s.account(), apiID, method, strings.TrimPrefix(path, "/")),
		}, nil

	case waskit.TypeDeployment:
		apiID, err := attrString(res, "rest_api")
		if err != nil {
			return nil, err
		}
		stage, err := attrString(res, "stage")
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"invoke_url": fmt.Sprintf("https://%s.execute-api.%s.amazonaws.com/%s", apiID, s.region(), stage),
		}, nil

	case waskit.TypePermission:
		if _, err := attrString(res, "function"); err != nil {
			return nil, err
		}
		return map[string]any{
			"statement_id": res.ID + "-invoke",
		}, nil

	default:
		return nil, fmt.Errorf("unsupported resource type %q", res.Type)
	}
}

// Update implements Provider. The stub recomputes assignments the same way
// a create would; identifiers are stable across updates.
func (s *StubProvider) Update(ctx context.Context, res waskit.Resource, _ waskit.AppliedResource) (map[string]any, error) {
	return s.Create(ctx, res)
}

// Delete implements Provider. Nothing exists outside the state record.
func (s *StubProvider) Delete(context.Context, waskit.AppliedResource) error {
	return nil
}

func attrString(res waskit.Resource, name string) (string, error) {
	v, ok := res.Attributes[name]
	if !ok {
		return "", fmt.Errorf("resource %s is missing required attribute %q", res.ID, name)
	}
	str, ok := v.(string)
	if !ok || str == "" {
		return "", fmt.Errorf("resource %s attribute %q must be a non-empty string", res.ID, name)
	}
	return str, nil
}

// stableID derives a 10-character lowercase identifier from a name, shaped
// like a gateway API ID.
func stableID(name string) string {
	sum := blake3.Sum256([]byte(name))
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	out := make([]byte, 10)
	for i := range out {
		out[i] = alphabet[int(sum[i])%len(alphabet)]
	}
	return string(out)
}
