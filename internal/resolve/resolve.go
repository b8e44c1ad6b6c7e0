// Package resolve reads deployment outputs from applied state.
//
// It is a pure read: nothing here talks to a provider or mutates state. The
// invocation URL is composed from the gateway deployment's stage URL and the
// route's path.
package resolve

import (
	"fmt"
	"strings"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/state"
)

// Outputs resolves the public invocation URL and the function name from the
// applied state. It fails if the deployment, route or function has not been
// applied; partial applies have no outputs.
func Outputs(st *state.State) (waskit.Outputs, error) {
	deployment, ok := firstOfType(st, waskit.TypeDeployment)
	if !ok {
		return waskit.Outputs{}, fmt.Errorf("no applied %s resource", waskit.TypeDeployment)
	}
	route, ok := firstOfType(st, waskit.TypeRoute)
	if !ok {
		return waskit.Outputs{}, fmt.Errorf("no applied %s resource", waskit.TypeRoute)
	}
	function, ok := firstOfType(st, waskit.TypeFunction)
	if !ok {
		return waskit.Outputs{}, fmt.Errorf("no applied %s resource", waskit.TypeFunction)
	}

	base, ok := stringAttr(deployment, "invoke_url")
	if !ok {
		return waskit.Outputs{}, fmt.Errorf("deployment %s has no invoke_url", deployment.ID)
	}
	path, ok := stringAttr(route, "path")
	if !ok {
		return waskit.Outputs{}, fmt.Errorf("route %s has no path", route.ID)
	}
	name, ok := stringAttr(function, "name")
	if !ok {
		return waskit.Outputs{}, fmt.Errorf("function %s has no name", function.ID)
	}

	return waskit.Outputs{
		InvokeURL:    strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/"),
		FunctionName: name,
	}, nil
}

func firstOfType(st *state.State, typ string) (waskit.AppliedResource, bool) {
	for _, res := range st.Resources {
		if res.Type == typ {
			return res, true
		}
	}
	return waskit.AppliedResource{}, false
}

func stringAttr(res waskit.AppliedResource, name string) (string, bool) {
	v, ok := res.Attributes[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
