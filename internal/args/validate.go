package args

import (
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

// compiled schemas keyed by their serialised form; tool hosts repeat
// the same schemas across requests.
var schemaCache sync.Map

// ValidateArguments checks sanitised arguments against the tool's
// declared input schema. The check is advisory: a returned error is
// recorded as a trace warning, never a reason to skip the call.
// Schemas that fail to compile validate nothing.
func ValidateArguments(tool models.ToolDescriptor, arguments map[string]interface{}) error {
	if len(tool.InputSchema.Properties) == 0 && len(tool.InputSchema.Required) == 0 {
		return nil
	}

	schemaJSON, err := json.Marshal(tool.InputSchema.AsMap())
	if err != nil {
		return nil
	}
	key := string(schemaJSON)

	var schema *jsonschema.Schema
	if cached, ok := schemaCache.Load(key); ok {
		schema = cached.(*jsonschema.Schema)
	} else {
		compiled, err := jsonschema.CompileString("tool.schema.json", key)
		if err != nil {
			return nil
		}
		schemaCache.Store(key, compiled)
		schema = compiled
	}

	// Round-trip through JSON so typed slices decode into the generic
	// shapes the validator walks.
	raw, err := json.Marshal(arguments)
	if err != nil {
		return nil
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}
	return schema.Validate(decoded)
}
