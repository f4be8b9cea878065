package hardware

import (
	"embed"
	"encoding/json"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/cockroachdb/errors"
)

//go:embed schema.cue
var schemaFS embed.FS

//go:embed output_schema.cue
var outputSchemaFS embed.FS

// DescriptorValidator checks descriptor JSON against the embedded CUE schema
// before it enters the store. A descriptor that fails the contract is skipped
// with a log line rather than poisoning every later pin query.
type DescriptorValidator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewDescriptorValidator compiles the embedded descriptor schema.
func NewDescriptorValidator() (*DescriptorValidator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile("schema.cue")
	if err != nil {
		return nil, errors.Wrap(err, "loading embedded schema")
	}

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, errors.Wrap(schema.Err(), "compiling schema")
	}

	return &DescriptorValidator{ctx: ctx, schema: schema}, nil
}

// ValidateBoard checks a board descriptor JSON payload against #Board.
func (v *DescriptorValidator) ValidateBoard(jsonBytes []byte) error {
	return v.validate(jsonBytes, "#Board")
}

// ValidateProtocol checks a protocol descriptor JSON payload against #Protocol.
func (v *DescriptorValidator) ValidateProtocol(jsonBytes []byte) error {
	return v.validate(jsonBytes, "#Protocol")
}

// ValidateLibrary checks a library descriptor JSON payload against #Library.
func (v *DescriptorValidator) ValidateLibrary(jsonBytes []byte) error {
	return v.validate(jsonBytes, "#Library")
}

func (v *DescriptorValidator) validate(jsonBytes []byte, path string) error {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return errors.Wrap(dataValue.Err(), "compiling JSON as CUE")
	}

	def := v.schema.LookupPath(cue.ParsePath(path))
	if def.Err() != nil {
		return errors.Wrapf(def.Err(), "looking up %s definition", path)
	}

	unified := def.Unify(dataValue)
	if err := unified.Validate(); err != nil {
		return errors.Wrap(err, "schema validation failed")
	}
	return nil
}

// OutputValidator checks an analysis result against the wire-shape contract.
// The editor host consumes these shapes bit-exactly, so tests and the
// `lint --json` path run results through it.
type OutputValidator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewOutputValidator compiles the embedded output schema.
func NewOutputValidator() (*OutputValidator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := outputSchemaFS.ReadFile("output_schema.cue")
	if err != nil {
		return nil, errors.Wrap(err, "loading output schema")
	}

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, errors.Wrap(schema.Err(), "compiling output schema")
	}

	return &OutputValidator{ctx: ctx, schema: schema}, nil
}

// Validate checks that data conforms to #AnalysisResult.
func (v *OutputValidator) Validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "marshaling output to JSON")
	}

	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return errors.Wrap(dataValue.Err(), "compiling output as CUE")
	}

	def := v.schema.LookupPath(cue.ParsePath("#AnalysisResult"))
	if def.Err() != nil {
		return errors.Wrap(def.Err(), "looking up #AnalysisResult definition")
	}

	unified := def.Unify(dataValue)
	if err := unified.Validate(); err != nil {
		return errors.Wrap(err, "output schema validation failed")
	}
	return nil
}
