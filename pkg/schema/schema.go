// Package schema generates JSON schemas for gambit's structured output so
// downstream tools can validate `gambit run --output json` documents.
//
// Example usage:
//
//	data, err := schema.Report()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(string(data))
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/stoewer/go-strcase"

	"github.com/lacquerai/gambit/internal/engine"
)

// NewReflector returns the reflector used for every gambit schema. Keys and
// definition names are snake_case to match the JSON tags.
func NewReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		KeyNamer: strcase.SnakeCase,
		Namer: func(t reflect.Type) string {
			return strcase.SnakeCase(t.Name())
		},
		ExpandedStruct: true,
	}
}

// For returns the indented JSON schema of v with the given title.
func For(v any, title string) ([]byte, error) {
	s := NewReflector().Reflect(v)
	s.Title = title

	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}

// Report returns the schema of the run report.
func Report() ([]byte, error) {
	return For(&engine.Report{}, "gambit report")
}
