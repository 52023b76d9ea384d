package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// guildConfigSchema is the wire contract for persisted guild documents.
// Hydration rejects rows that drifted from it rather than silently
// zero-filling fields.
const guildConfigSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["guildId", "botName", "timezone", "language", "setupBy", "isConfigured"],
  "properties": {
    "guildId": {"type": "string", "minLength": 1},
    "botName": {"type": "string", "minLength": 1, "maxLength": 50},
    "timezone": {"type": "string", "minLength": 1},
    "language": {"type": "string", "enum": ["es", "en"]},
    "commandRoleGrants": {
      "type": "object",
      "additionalProperties": {"type": "array", "items": {"type": "string"}}
    },
    "adminRoles": {"type": "array", "items": {"type": "string"}},
    "moderatorRoles": {"type": "array", "items": {"type": "string"}},
    "channels": {
      "type": "object",
      "properties": {
        "logs": {"type": "string"},
        "announcements": {"type": "string"},
        "status": {"type": "string"}
      }
    },
    "features": {
      "type": "object",
      "properties": {
        "enableSystemCommands": {"type": "boolean"},
        "enableMaintenance": {"type": "boolean"},
        "enableStatusUpdates": {"type": "boolean"},
        "autoRestartOnError": {"type": "boolean"}
      }
    },
    "serverInfo": {
      "type": "object",
      "properties": {
        "name": {"type": "string"},
        "memberCount": {"type": "integer", "minimum": 0},
        "lastSeen": {"type": "string"}
      }
    },
    "isConfigured": {"type": "boolean"},
    "setupBy": {"type": "string", "minLength": 1},
    "lastModified": {"type": "string"}
  }
}`

// DocumentValidator validates guild documents against the embedded schema,
// compiled once at construction.
type DocumentValidator struct {
	schema *jsonschema.Schema
}

// NewDocumentValidator compiles the guild config schema.
func NewDocumentValidator() (*DocumentValidator, error) {
	compiler := jsonschema.NewCompiler()
	const url = "memory://schemas/guild-config.json"
	if err := compiler.AddResource(url, bytes.NewReader([]byte(guildConfigSchema))); err != nil {
		return nil, fmt.Errorf("register guild config schema: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile guild config schema: %w", err)
	}
	return &DocumentValidator{schema: schema}, nil
}

// Validate ensures the raw document matches the schema.
func (v *DocumentValidator) Validate(raw []byte) error {
	if len(raw) == 0 {
		return fmt.Errorf("document is empty")
	}
	var document any
	if err := json.Unmarshal(raw, &document); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := v.schema.Validate(document); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}
