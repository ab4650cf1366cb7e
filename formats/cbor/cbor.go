// Package cbor provides a CBOR formatter for problem responses with default
// configuration. Importing this package adds CBOR support to
// `exhandler.DefaultFormats`.
package cbor

import (
	"io"

	"github.com/danielgtaylor/exhandler"
	"github.com/fxamacker/cbor/v2"
)

var cborEncMode, _ = cbor.EncOptions{
	// Canonical enc opts
	Sort:          cbor.SortCanonical,
	ShortestFloat: cbor.ShortestFloat16,
	NaNConvert:    cbor.NaNConvert7e00,
	InfConvert:    cbor.InfConvertFloat16,
	IndefLength:   cbor.IndefLengthForbidden,
}.EncMode()

// DefaultCBORFormat is the default CBOR formatter that can be set in the
// builder's formats map. This is usually not needed as importing this
// package automatically adds the CBOR format to the default formats.
//
//	exhandler.NewBuilder().Formats(map[string]exhandler.Format{
//		"application/json": exhandler.DefaultJSONFormat,
//		"application/cbor": cbor.DefaultCBORFormat,
//	})
var DefaultCBORFormat = exhandler.Format{
	Marshal: func(w io.Writer, v any) error {
		return cborEncMode.NewEncoder(w).Encode(v)
	},
	Unmarshal: cbor.Unmarshal,
}

func init() {
	exhandler.DefaultFormats["application/cbor"] = DefaultCBORFormat
	exhandler.DefaultFormats["application/problem+cbor"] = DefaultCBORFormat
}
