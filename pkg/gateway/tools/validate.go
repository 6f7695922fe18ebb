package tools

import (
	"fmt"

	"github.com/Bharath8080/voiced/pkg/core"
	"github.com/Bharath8080/voiced/pkg/core/types"
)

// validateArgs checks args against the tool's input schema: required
// properties present, value types matching, and no unknown keys unless
// the schema allows them.
func validateArgs(schema *types.JSONSchema, tool string, args map[string]any) error {
	if schema == nil {
		return nil
	}
	for _, name := range schema.Required {
		if _, ok := args[name]; !ok {
			return core.NewInvalidArgsError(tool, "missing required argument %q", name)
		}
	}
	allowExtra := schema.AdditionalProperties == nil || *schema.AdditionalProperties
	for name, value := range args {
		prop, known := schema.Properties[name]
		if !known {
			if !allowExtra {
				return core.NewInvalidArgsError(tool, "unknown argument %q", name)
			}
			continue
		}
		if err := checkType(prop, name, value); err != nil {
			return core.NewInvalidArgsError(tool, "%v", err)
		}
	}
	return nil
}

func checkType(prop *types.JSONSchema, name string, value any) error {
	if prop == nil || prop.Type == "" || value == nil {
		return nil
	}
	switch prop.Type {
	case "string":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("argument %q must be a string", name)
		}
		if len(prop.Enum) > 0 && !contains(prop.Enum, s) {
			return fmt.Errorf("argument %q must be one of %v", name, prop.Enum)
		}
	case "number":
		switch value.(type) {
		case float64, int, int64:
		default:
			return fmt.Errorf("argument %q must be a number", name)
		}
	case "integer":
		switch v := value.(type) {
		case int, int64:
		case float64:
			if v != float64(int64(v)) {
				return fmt.Errorf("argument %q must be an integer", name)
			}
		default:
			return fmt.Errorf("argument %q must be an integer", name)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("argument %q must be a boolean", name)
		}
	case "array":
		arr, ok := value.([]any)
		if !ok {
			return fmt.Errorf("argument %q must be an array", name)
		}
		for _, item := range arr {
			if err := checkType(prop.Items, name, item); err != nil {
				return err
			}
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("argument %q must be an object", name)
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
