package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Schema file names, one per message type.
var schemaFiles = map[string]string{
	TypeHello:   "hello.schema.json",
	TypeWelcome: "welcome.schema.json",
	TypeAct:     "act.schema.json",
	TypeResult:  "result.schema.json",
}

// Validator checks raw frames against the embedded message schemas.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	for _, name := range schemaFiles {
		b, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(name, bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
	}
	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(schemaFiles))}
	for typ, name := range schemaFiles {
		s, err := c.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", name, err)
		}
		v.schemas[typ] = s
	}
	return v, nil
}

// Validate checks raw JSON against the schema for message type typ.
func (v *Validator) Validate(typ string, raw []byte) error {
	s, ok := v.schemas[typ]
	if !ok {
		return fmt.Errorf("no schema for message type %q", typ)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return s.Validate(doc)
}

// ValidateValue marshals an outbound message and validates it.
func (v *Validator) ValidateValue(typ string, msg any) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return v.Validate(typ, raw)
}
