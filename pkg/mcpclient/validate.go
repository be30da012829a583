package mcpclient

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// toolSchema normalizes a wire-decoded input schema into a typed one. The
// SDK delivers schemas as untyped values on the client side; servers built
// in-process hand over *jsonschema.Schema directly.
func toolSchema(raw any) (*jsonschema.Schema, error) {
	switch s := raw.(type) {
	case nil:
		return nil, nil
	case *jsonschema.Schema:
		return s, nil
	default:
		data, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		var schema jsonschema.Schema
		if err := json.Unmarshal(data, &schema); err != nil {
			return nil, err
		}
		return &schema, nil
	}
}

// validateArguments checks the supplied arguments against the tool's input
// schema before the call leaves the process: required properties must be
// present and top-level property types must match. Deeper schema features
// are left to the server.
func validateArguments(schema *jsonschema.Schema, args map[string]any) error {
	if schema == nil {
		return nil
	}
	for _, name := range schema.Required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("missing required argument %q", name)
		}
	}
	for name, value := range args {
		prop, ok := schema.Properties[name]
		if !ok || prop == nil || prop.Type == "" {
			continue
		}
		if !matchesType(prop.Type, value) {
			return fmt.Errorf("argument %q: expected %s, got %T", name, prop.Type, value)
		}
	}
	return nil
}

func matchesType(typ string, value any) bool {
	if value == nil {
		return typ == "null"
	}
	switch typ {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		return isNumeric(value)
	case "integer":
		switch v := value.(type) {
		case int, int32, int64:
			return true
		case float64:
			return v == float64(int64(v))
		case json.Number:
			_, err := v.Int64()
			return err == nil
		default:
			return false
		}
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func isNumeric(value any) bool {
	switch value.(type) {
	case int, int32, int64, float32, float64, json.Number:
		return true
	default:
		return false
	}
}
