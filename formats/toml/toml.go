// Package toml provides a TOML formatter for problem responses. Importing
// this package adds TOML support to `exhandler.DefaultFormats`.
package toml

import (
	"io"

	"github.com/BurntSushi/toml"
	"github.com/danielgtaylor/exhandler"
)

// DefaultTOMLFormat encodes bodies with their `toml` struct tags. A
// validation message's errors become an array of tables.
var DefaultTOMLFormat = exhandler.Format{
	Marshal: func(w io.Writer, v any) error {
		return toml.NewEncoder(w).Encode(v)
	},
	Unmarshal: toml.Unmarshal,
}

func init() {
	exhandler.DefaultFormats["application/toml"] = DefaultTOMLFormat
}
