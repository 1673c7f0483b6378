package protocol

import (
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schemas holds the compiled message schemas used for edge validation.
// A nil *Schemas disables validation.
type Schemas struct {
	Hello  *jsonschema.Schema
	Call   *jsonschema.Schema
	Result *jsonschema.Schema
}

func CompileDir(dir string) (*Schemas, error) {
	c := jsonschema.NewCompiler()
	compile := func(name string) (*jsonschema.Schema, error) {
		return c.Compile(filepath.Join(dir, name))
	}
	hello, err := compile("hello.schema.json")
	if err != nil {
		return nil, err
	}
	call, err := compile("call.schema.json")
	if err != nil {
		return nil, err
	}
	result, err := compile("result.schema.json")
	if err != nil {
		return nil, err
	}
	return &Schemas{Hello: hello, Call: call, Result: result}, nil
}
