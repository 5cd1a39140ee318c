package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNoJSON is returned when no JSON value can be recovered from the content.
var ErrNoJSON = errors.New("no JSON value found")

// As parses model output into T.
//
// Scalars (string, bool, ints, uints, floats) are converted directly, also
// accepting the {"type": ..., "value": ...} envelope models sometimes emit.
// Every other type is decoded as JSON, trying in order: the raw content, the
// candidates found in markdown fences or embedded in prose, the jsonrepair
// output of each candidate, and finally the candidate with schema envelopes
// unwrapped.
func As[T any](content string) (T, error) {
	var result T
	target := reflect.ValueOf(&result).Elem()

	if isScalar(target.Kind()) {
		content = strings.TrimSpace(content)
		if err := setScalar(target, content); err != nil {
			unwrapped, unwrapErr := unwrapPrimitive(content)
			if unwrapErr != nil || setScalar(target, unwrapped) != nil {
				return result, fmt.Errorf("parse %T: %w", result, err)
			}
		}
		return result, nil
	}

	var lastErr error = ErrNoJSON
	for _, candidate := range candidates(content) {
		if err := decodeCandidate(candidate, &result); err != nil {
			lastErr = err
			continue
		}
		return result, nil
	}
	return result, fmt.Errorf("parse %T: %w", result, lastErr)
}

func decodeCandidate[T any](candidate string, out *T) error {
	err := json.Unmarshal([]byte(candidate), out)
	if err == nil {
		return nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(candidate)
	if repairErr != nil {
		return fmt.Errorf("%w (repair failed: %v)", err, repairErr)
	}
	if err = json.Unmarshal([]byte(repaired), out); err == nil {
		return nil
	}

	unwrapped, unwrapErr := unwrapSchemaValues(repaired)
	if unwrapErr != nil {
		return err
	}
	return json.Unmarshal([]byte(unwrapped), out)
}

// candidates returns the strings worth trying as JSON, most specific first:
// fenced code blocks, then the outermost balanced object or array, then the
// whole trimmed content.
func candidates(content string) []string {
	var result []string
	seen := map[string]bool{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	rest := content
	for {
		start := strings.Index(rest, "```")
		if start < 0 {
			break
		}
		body := rest[start+3:]
		end := strings.Index(body, "```")
		if end < 0 {
			break
		}
		block := body[:end]
		// drop the language tag on the opening fence line
		if nl := strings.IndexByte(block, '\n'); nl >= 0 && !strings.ContainsAny(block[:nl], "{[") {
			block = block[nl+1:]
		}
		add(block)
		rest = body[end+3:]
	}

	if region, ok := balancedRegion(content); ok {
		add(region)
	}
	add(content)
	return result
}

// balancedRegion finds the first '{' or '[' and returns the text up to its
// matching closer, ignoring brackets inside strings. An unterminated region
// is returned whole so jsonrepair can close it.
func balancedRegion(content string) (string, bool) {
	start := strings.IndexAny(content, "{[")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(content); i++ {
		c := content[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			depth++
		case c == '}' || c == ']':
			depth--
			if depth == 0 {
				return content[start : i+1], true
			}
		}
	}
	return content[start:], true
}

func isScalar(kind reflect.Kind) bool {
	switch kind {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func setScalar(target reflect.Value, content string) error {
	switch target.Kind() {
	case reflect.String:
		if strings.HasPrefix(content, "{") {
			if unwrapped, err := unwrapPrimitive(content); err == nil {
				content = unwrapped
			}
		}
		target.SetString(content)
	case reflect.Bool:
		v, err := strconv.ParseBool(content)
		if err != nil {
			return err
		}
		target.SetBool(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(content, 10, target.Type().Bits())
		if err != nil {
			return err
		}
		target.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(content, 10, target.Type().Bits())
		if err != nil {
			return err
		}
		target.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(content, target.Type().Bits())
		if err != nil {
			return err
		}
		target.SetFloat(v)
	}
	return nil
}

// unwrapPrimitive extracts value from {"type": ..., "value": ...}.
func unwrapPrimitive(content string) (string, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return "", err
	}
	value, ok := schemaValue(data)
	if !ok {
		return "", errors.New("not a schema-wrapped value")
	}
	if s, isString := value.(string); isString {
		return s, nil
	}
	raw, err := json.Marshal(value)
	return string(raw), err
}

// unwrapSchemaValues rewrites {"name": {"type": "string", "value": "John"}}
// as {"name": "John"}, recursively.
func unwrapSchemaValues(jsonStr string) (string, error) {
	var data any
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return "", err
	}
	result, err := json.Marshal(recursiveUnwrap(data))
	return string(result), err
}

func recursiveUnwrap(data any) any {
	switch v := data.(type) {
	case map[string]any:
		if value, ok := schemaValue(v); ok {
			return recursiveUnwrap(value)
		}
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = recursiveUnwrap(val)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = recursiveUnwrap(val)
		}
		return result
	default:
		return data
	}
}

func schemaValue(m map[string]any) (any, bool) {
	if len(m) != 2 {
		return nil, false
	}
	if _, hasType := m["type"]; !hasType {
		return nil, false
	}
	value, hasValue := m["value"]
	return value, hasValue
}
