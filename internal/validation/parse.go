package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// ParseJSON decodes JSON text and validates it. Syntax errors are reported as
// a single file-level entry rather than returned.
func ParseJSON(data []byte) Result {
	return defaultValidator.ParseJSON(data)
}

// ParseReader reads r to completion and validates its content.
func ParseReader(r io.Reader) Result {
	return defaultValidator.ParseReader(r)
}

func (v Validator) ParseJSON(data []byte) Result {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return rootFailure(FieldFile, fmt.Sprintf("JSON parsing error: %v", err))
	}
	if dec.More() {
		return rootFailure(FieldFile, "JSON parsing error: unexpected data after top-level value")
	}
	return v.Validate(raw)
}

func (v Validator) ParseReader(r io.Reader) Result {
	data, err := io.ReadAll(r)
	if err != nil {
		return rootFailure(FieldFile, "Failed to read file")
	}
	return v.ParseJSON(data)
}
