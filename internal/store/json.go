package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const inventorySchema = `{
  "type": ["array", "null"],
  "items": {
    "type": "object",
    "required": ["id", "item_name", "category", "purchase_price", "status"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "item_name": {"type": "string"},
      "category": {"type": "string"},
      "purchase_price": {"type": "number"},
      "market_value": {"type": "number"},
      "authenticity_score": {"type": "integer"},
      "status": {"type": "string"}
    }
  }
}`

const priceAlertsSchema = `{
  "type": ["array", "null"],
  "items": {
    "type": "object",
    "required": ["id", "item_id", "original_price", "current_price", "percentage_change", "is_active", "notification_sent"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "item_id": {"type": "string"},
      "original_price": {"type": "number"},
      "current_price": {"type": "number"},
      "target_price": {"type": "number"},
      "percentage_change": {"type": "number", "minimum": 0},
      "is_active": {"type": "boolean"},
      "notification_sent": {"type": "boolean"}
    }
  }
}`

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		sources := map[string]string{
			KeyInventory:   inventorySchema,
			KeyPriceAlerts: priceAlertsSchema,
		}
		compiled := make(map[string]*jsonschema.Schema, len(sources))
		for key, src := range sources {
			compiler := jsonschema.NewCompiler()
			if err := compiler.AddResource(key, strings.NewReader(src)); err != nil {
				schemasErr = fmt.Errorf("add schema %s: %w", key, err)
				return
			}
			s, err := compiler.Compile(key)
			if err != nil {
				schemasErr = fmt.Errorf("compile schema %s: %w", key, err)
				return
			}
			compiled[key] = s
		}
		schemas = compiled
	})
	return schemas, schemasErr
}

// Validate checks data against the schema registered for key. Keys
// without a schema only need to be well-formed JSON.
func Validate(key string, data []byte) error {
	compiled, err := compileSchemas()
	if err != nil {
		return err
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	if s, ok := compiled[key]; ok {
		if err := s.Validate(v); err != nil {
			return fmt.Errorf("%s does not match schema: %w", key, err)
		}
	}
	return nil
}

// LoadJSON loads key into v after validating it. A key that was never
// saved leaves v untouched and returns ErrNotFound.
func LoadJSON(ctx context.Context, s BlobStore, key string, v any) error {
	data, err := s.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := Validate(key, data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// SaveJSON encodes v and saves it under key
func SaveJSON(ctx context.Context, s BlobStore, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Save(ctx, key, data)
}
