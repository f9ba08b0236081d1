package logbook

import (
	"encoding/json"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/notata/pkg/types"
)

// floatText renders f so that it reads back as a float: whole values keep a
// decimal point ("1.0", not "1").
func floatText(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}

// yamlValue copies v, replacing every float with a !!float scalar node.
// Maps and lists are walked; other values pass through.
func yamlValue(v any) any {
	switch x := v.(type) {
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: floatText(x)}
	case float32:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: floatText(float64(x))}
	case types.Params:
		return yamlValue(map[string]any(x))
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, elem := range x {
			out[k] = yamlValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, elem := range x {
			out[i] = yamlValue(elem)
		}
		return out
	default:
		return v
	}
}

// jsonValue copies v, replacing every float with a json.Number that keeps
// its decimal point.
func jsonValue(v any) any {
	switch x := v.(type) {
	case float64:
		return json.Number(floatText(x))
	case float32:
		return json.Number(floatText(float64(x)))
	case types.Params:
		return jsonValue(map[string]any(x))
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, elem := range x {
			out[k] = jsonValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, elem := range x {
			out[i] = jsonValue(elem)
		}
		return out
	default:
		return v
	}
}
