package discovery

import (
	"bytes"
	_ "embed"
	"errors"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/restdescription.json
var restDescriptionSchema []byte

// compiledRestDescription is compiled on first use and only read afterwards.
var compiledRestDescription = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("restdescription.json", bytes.NewReader(restDescriptionSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("restdescription.json")
})

// validateRestDescription checks the shape of a 1.0 document before the
// model is built. It recognizes discovery shapes only.
func validateRestDescription(root *Node) error {
	sch, err := compiledRestDescription()
	if err != nil {
		return &Error{Code: MalformedDocument, Message: "discovery: compile restDescription schema: " + err.Error(), Cause: err}
	}
	err = sch.Validate(root.Interface())
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &Error{Code: MalformedDocument, Message: "discovery: validate document: " + err.Error(), Cause: err}
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	return &Error{
		Code:    MalformedDocument,
		Message: "discovery: document does not match restDescription schema: " + leaf.Message,
		Pointer: leaf.InstanceLocation,
		Cause:   err,
	}
}
