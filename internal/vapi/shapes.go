package vapi

import (
	"fmt"
	"maps"
)

// Shape is one candidate request envelope for the call-creation endpoint.
type Shape struct {
	Name  string
	Build func(workflowID string, vars map[string]any) map[string]any
}

// The provider has rejected an "input" wrapper before, so the two input
// shapes stay at the end of the default order.
var knownShapes = map[string]Shape{
	"variables": {
		Name: "variables",
		Build: func(id string, vars map[string]any) map[string]any {
			return map[string]any{"workflowId": id, "variables": vars}
		},
	},
	"variableValues": {
		Name: "variableValues",
		Build: func(id string, vars map[string]any) map[string]any {
			return map[string]any{"workflowId": id, "variableValues": vars}
		},
	},
	"spread": {
		Name: "spread",
		Build: func(id string, vars map[string]any) map[string]any {
			body := make(map[string]any, len(vars)+1)
			maps.Copy(body, vars)
			body["workflowId"] = id
			return body
		},
	},
	"workflowOnly": {
		Name: "workflowOnly",
		Build: func(id string, _ map[string]any) map[string]any {
			return map[string]any{"workflowId": id}
		},
	},
	"inputVariableValues": {
		Name: "inputVariableValues",
		Build: func(id string, vars map[string]any) map[string]any {
			return map[string]any{"workflowId": id, "input": map[string]any{"variableValues": vars}}
		},
	},
	"inputVariables": {
		Name: "inputVariables",
		Build: func(id string, vars map[string]any) map[string]any {
			return map[string]any{"workflowId": id, "input": map[string]any{"variables": vars}}
		},
	},
	// Envelope used by the provider's server SDK.
	"workflowObject": {
		Name: "workflowObject",
		Build: func(id string, vars map[string]any) map[string]any {
			return map[string]any{
				"type":     "workflow",
				"workflow": map[string]any{"id": id, "variableValues": vars},
			}
		},
	},
}

var defaultOrder = []string{
	"variables",
	"variableValues",
	"spread",
	"workflowOnly",
	"inputVariableValues",
	"inputVariables",
}

// DefaultShapes returns the candidate list in the default priority order.
func DefaultShapes() []Shape {
	shapes, _ := Shapes(defaultOrder)
	return shapes
}

// Shapes resolves shape names in order. An empty list yields the defaults.
func Shapes(names []string) ([]Shape, error) {
	if len(names) == 0 {
		names = defaultOrder
	}
	seen := make(map[string]bool, len(names))
	out := make([]Shape, 0, len(names))
	for _, name := range names {
		shape, ok := knownShapes[name]
		if !ok {
			return nil, fmt.Errorf("unknown request shape %q", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate request shape %q", name)
		}
		seen[name] = true
		out = append(out, shape)
	}
	return out, nil
}

// KnownShapeNames lists every shape the initiator can build.
func KnownShapeNames() []string {
	names := append([]string(nil), defaultOrder...)
	return append(names, "workflowObject")
}
