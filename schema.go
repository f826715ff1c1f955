package toolchat

// Schema is the parameter schema shape accepted by model backends. Its
// fields are exactly the allow-listed keys; any other key found in a
// provider schema is dropped when the schema is built.
type Schema struct {
	AnyOf            []*Schema          `json:"anyOf,omitempty"`
	Type             string             `json:"type,omitempty"`
	Format           string             `json:"format,omitempty"`
	Description      string             `json:"description,omitempty"`
	Nullable         *bool              `json:"nullable,omitempty"`
	Enum             []any              `json:"enum,omitempty"`
	Default          any                `json:"default,omitempty"`
	Example          any                `json:"example,omitempty"`
	Pattern          string             `json:"pattern,omitempty"`
	Properties       map[string]*Schema `json:"properties,omitempty"`
	PropertyOrdering []string           `json:"propertyOrdering,omitempty"`
	Required         []string           `json:"required,omitempty"`
	Items            *Schema            `json:"items,omitempty"`
	MinItems         *int64             `json:"minItems,omitempty"`
	MaxItems         *int64             `json:"maxItems,omitempty"`
	MinLength        *int64             `json:"minLength,omitempty"`
	MaxLength        *int64             `json:"maxLength,omitempty"`
	MinProperties    *int64             `json:"minProperties,omitempty"`
	MaxProperties    *int64             `json:"maxProperties,omitempty"`
	Minimum          *float64           `json:"minimum,omitempty"`
	Maximum          *float64           `json:"maximum,omitempty"`
}

// SchemaKeys lists the allow-listed schema keys in their wire spelling.
var SchemaKeys = []string{
	"anyOf", "type", "properties", "items", "required", "nullable",
	"format", "description", "enum", "default", "example", "maxItems",
	"maxLength", "maxProperties", "maximum", "minItems", "minLength",
	"minProperties", "minimum", "pattern", "propertyOrdering",
}

// IsSchemaKey reports whether key is allow-listed.
func IsSchemaKey(key string) bool {
	for _, k := range SchemaKeys {
		if k == key {
			return true
		}
	}
	return false
}
