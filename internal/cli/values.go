package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/attrstore/internal/attr"
)

// ValueTypes are the accepted --type values.
var ValueTypes = []string{"string", "integer", "number", "bool"}

// parseValue encodes the command-line text of an attribute value.
func parseValue(typ, text string) (attr.Value, error) {
	switch strings.ToLower(typ) {
	case "", "string":
		return attr.String(text), nil
	case "integer", "int":
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return attr.Value{}, fmt.Errorf("%q is not an integer", text)
		}
		return attr.Integer(n), nil
	case "number", "float":
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return attr.Value{}, fmt.Errorf("%q is not a number", text)
		}
		return attr.Number(f), nil
	case "bool", "boolean":
		b, err := attr.ParseBool(text)
		if err != nil {
			return attr.Value{}, err
		}
		return attr.Bool(b), nil
	}
	return attr.Value{}, fmt.Errorf("unknown value type %q: must be one of %v", typ, ValueTypes)
}

// formatValue renders a stored value: quoted text when the string slot is
// set, otherwise the number.
func formatValue(v attr.Value) string {
	if s, ok := v.Text(); ok {
		return strconv.Quote(s)
	}
	return strconv.FormatFloat(v.Float(), 'g', -1, 64)
}

// valueData is the JSON form of a stored value.
func valueData(v attr.Value) any {
	if s, ok := v.Text(); ok {
		return s
	}
	return v.Float()
}

// yamlValues converts a decoded YAML attribute value into the values stored
// at nr 0, 1, ... A sequence fills consecutive slots.
func yamlValues(code string, raw any) ([]attr.Value, error) {
	if seq, ok := raw.([]any); ok {
		out := make([]attr.Value, 0, len(seq))
		for i, item := range seq {
			v, err := yamlScalar(item)
			if err != nil {
				return nil, fmt.Errorf("attribute %q[%d]: %w", code, i, err)
			}
			out = append(out, v)
		}
		return out, nil
	}
	v, err := yamlScalar(raw)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", code, err)
	}
	return []attr.Value{v}, nil
}

func yamlScalar(raw any) (attr.Value, error) {
	switch v := raw.(type) {
	case nil:
		return attr.String(""), nil
	case string:
		return attr.String(v), nil
	case bool:
		return attr.Bool(v), nil
	case int:
		return attr.Integer(int64(v)), nil
	case int64:
		return attr.Integer(v), nil
	case uint64:
		return attr.Number(float64(v)), nil
	case float64:
		return attr.Number(v), nil
	}
	return attr.Value{}, fmt.Errorf("unsupported value of type %T", raw)
}

func sortedCodes(m map[string]any) []string {
	codes := make([]string, 0, len(m))
	for c := range m {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

func parseID(name, s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("%s %q is not an integer id", name, s))
	}
	return n, nil
}
