package share

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"byteGiftAPI/internal/types/board"
)

//go:embed share_request.schema.json
var requestSchemaJSON []byte

const requestSchemaURL = "share_request.schema.json"

var requestSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(requestSchemaURL, bytes.NewReader(requestSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return compiler.Compile(requestSchemaURL)
})

// Request is the body of a create-share call.
type Request struct {
	ShareID string       `json:"shareId"`
	Items   []board.Item `json:"items"`
}

// DecodeRequest reads at most limit bytes, checks them against the request
// schema and decodes the items.
func DecodeRequest(r io.Reader, limit int64) (Request, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if int64(len(body)) > limit {
		return Request{}, fmt.Errorf("%w: body larger than %d bytes", ErrInvalidRequest, limit)
	}

	var instance any
	if err := json.Unmarshal(body, &instance); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	schema, err := requestSchema()
	if err != nil {
		return Request{}, fmt.Errorf("failed to compile share schema: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return req, nil
}
