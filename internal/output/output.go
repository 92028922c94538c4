// Package output serializes a resolved variable mapping per §6.5:
// dotenv with escaped newlines and quoted values, or YAML/JSON nested
// under the "envars" key.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/timeoutdigital/envars/internal/resolve"
)

const (
	FormatDotenv = "dotenv"
	FormatYAML   = "yaml"
	FormatJSON   = "json"
)

// Render serializes result in the requested format.
func Render(result *resolve.Result, format string) ([]byte, error) {
	switch format {
	case "", FormatDotenv:
		return renderDotenv(result), nil
	case FormatYAML:
		return renderYAML(result)
	case FormatJSON:
		return renderJSON(result)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

func renderDotenv(result *resolve.Result) []byte {
	var b strings.Builder

	for _, name := range result.Names {
		escaped := strings.ReplaceAll(result.Values[name], "\n", `\n`)
		fmt.Fprintf(&b, "%s=\"%s\"\n", name, escaped)
	}

	return []byte(b.String())
}

func renderYAML(result *resolve.Result) ([]byte, error) {
	return yaml.Marshal(map[string]map[string]string{"envars": orderedMap(result)})
}

func renderJSON(result *resolve.Result) ([]byte, error) {
	return json.MarshalIndent(map[string]map[string]string{"envars": orderedMap(result)}, "", "  ")
}

// orderedMap returns a plain map for the JSON/YAML encoders; both
// already commit to sorted key order on encode, and result.Names is
// itself sorted, so the two agree.
func orderedMap(result *resolve.Result) map[string]string {
	out := make(map[string]string, len(result.Names))
	for _, name := range result.Names {
		out[name] = result.Values[name]
	}

	return out
}
