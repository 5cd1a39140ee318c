// Package jsonschema derives JSON Schema documents from Go types by
// reflection. The agent uses them to tell the model what shape an extracted
// value must have.
package jsonschema
