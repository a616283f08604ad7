package generation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	reflectschema "github.com/invopop/jsonschema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// OutputSchema is a closed JSON Schema describing a generation result.
type OutputSchema struct {
	Name string
	Raw  json.RawMessage
}

var reflector = &reflectschema.Reflector{
	Anonymous:      true,
	DoNotReference: true,
}

// SchemaOf reflects the JSON Schema for T. Fields without omitempty are
// required and unknown properties are rejected.
func SchemaOf[T any](name string) (*OutputSchema, error) {
	return schemaOfType(reflect.TypeFor[T](), name)
}

func schemaOfType(t reflect.Type, name string) (*OutputSchema, error) {
	s := reflector.ReflectFromType(t)
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema for %s: %w", t, err)
	}
	return &OutputSchema{Name: name, Raw: raw}, nil
}

// Validator checks documents against output schemas. Compiled schemas are
// cached by their source text. It is safe for concurrent use.
type Validator struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewValidator creates an empty Validator.
func NewValidator() *Validator {
	return &Validator{cache: make(map[string]*jsonschema.Schema)}
}

// Validate checks doc, a value produced by jsonschema.UnmarshalJSON, against
// the schema. The returned error lists every violation with its location.
func (v *Validator) Validate(doc any, s *OutputSchema) error {
	compiled, err := v.getOrCompile(s.Raw)
	if err != nil {
		return fmt.Errorf("invalid output schema %s: %w", s.Name, err)
	}
	if err := compiled.Validate(doc); err != nil {
		return violationError(err)
	}
	return nil
}

// getOrCompile returns a cached compiled schema or compiles and caches a new one.
func (v *Validator) getOrCompile(schemaBytes []byte) (*jsonschema.Schema, error) {
	key := string(schemaBytes)

	v.mu.RLock()
	if cached, ok := v.cache[key]; ok {
		v.mu.RUnlock()
		return cached, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	// Double-check after acquiring write lock.
	if cached, ok := v.cache[key]; ok {
		return cached, nil
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(key))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	url := fmt.Sprintf("reqbot://output-schema/%d", len(v.cache))

	c := jsonschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v.cache[key] = compiled
	return compiled, nil
}

// SchemaViolation is returned when a document does not satisfy its schema.
type SchemaViolation struct {
	Violations []string
}

func (e *SchemaViolation) Error() string {
	if len(e.Violations) == 1 {
		return e.Violations[0]
	}
	return fmt.Sprintf("%d schema violations: %s", len(e.Violations), strings.Join(e.Violations, "; "))
}

func violationError(err error) error {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	violations := collectViolations(verr)
	if len(violations) == 0 {
		violations = []string{verr.Error()}
	}
	return &SchemaViolation{Violations: violations}
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
