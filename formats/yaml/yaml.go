// Package yaml provides a YAML formatter for problem responses. Importing
// this package adds YAML support to `exhandler.DefaultFormats`.
package yaml

import (
	"io"

	"github.com/danielgtaylor/exhandler"
	"github.com/goccy/go-yaml"
)

// DefaultYAMLFormat encodes bodies with their `yaml` struct tags.
var DefaultYAMLFormat = exhandler.Format{
	Marshal: func(w io.Writer, v any) error {
		return yaml.NewEncoder(w).Encode(v)
	},
	Unmarshal: yaml.Unmarshal,
}

func init() {
	exhandler.DefaultFormats["application/yaml"] = DefaultYAMLFormat
	exhandler.DefaultFormats["application/x-yaml"] = DefaultYAMLFormat
	exhandler.DefaultFormats["text/yaml"] = DefaultYAMLFormat
}
