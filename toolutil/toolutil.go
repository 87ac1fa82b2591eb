// Package toolutil is the "attribute reflection" collaborator named as
// out-of-core in the endpoint's design notes: it builds a {descriptor,
// invoke} pair — an mcp.Tool — from a plain Go function and its argument
// struct, generating the JSON Schema with invopop/jsonschema the way this
// SDK lineage's own schema package does for LLM function definitions.
package toolutil

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/metoro-io/mcp-golang/mcp"
)

var ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
var errType = reflect.TypeOf((*error)(nil)).Elem()

// New builds an mcp.Tool named name from handler, a function shaped
// exactly like func(context.Context, ArgsStruct) ([]mcp.Content, error).
// ArgsStruct's fields (and their `json`/`jsonschema` tags) become the
// tool's inputSchema.
func New(name, description string, handler interface{}) (mcp.Tool, error) {
	fnVal := reflect.ValueOf(handler)
	fnType := fnVal.Type()

	if fnType.Kind() != reflect.Func {
		return mcp.Tool{}, errors.Errorf("toolutil: handler for %q must be a function", name)
	}
	if fnType.NumIn() != 2 || !fnType.In(0).Implements(ctxType) {
		return mcp.Tool{}, errors.Errorf("toolutil: handler for %q must take (context.Context, ArgsStruct)", name)
	}
	if fnType.NumOut() != 2 || fnType.Out(1) != errType {
		return mcp.Tool{}, errors.Errorf("toolutil: handler for %q must return ([]mcp.Content, error)", name)
	}

	argsType := fnType.In(1)
	schema, err := reflectSchema(argsType)
	if err != nil {
		return mcp.Tool{}, errors.Wrapf(err, "toolutil: reflect schema for %q", name)
	}

	invoke := func(ctx context.Context, arguments json.RawMessage, _ interface{}) ([]mcp.Content, error) {
		argsPtr := reflect.New(argsType)
		if len(arguments) > 0 {
			if err := json.Unmarshal(arguments, argsPtr.Interface()); err != nil {
				return nil, mcp.NewRPCError(mcp.InvalidParamsCode, err.Error())
			}
		}

		results := fnVal.Call([]reflect.Value{reflect.ValueOf(ctx), argsPtr.Elem()})
		if errVal := results[1].Interface(); errVal != nil {
			return nil, errVal.(error)
		}
		content, _ := results[0].Interface().([]mcp.Content)
		return content, nil
	}

	return mcp.Tool{
		Descriptor: mcp.ToolDescriptor{
			Name:        name,
			Description: description,
			InputSchema: schema,
		},
		Invoke: invoke,
	}, nil
}

func reflectSchema(t reflect.Type) (json.RawMessage, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.ReflectFromType(t)
	return json.Marshal(schema)
}
