package exhandler

import (
	"encoding/xml"
	"io"

	"github.com/goccy/go-json"
)

// Format is a response body encoder. It is registered under each media type
// it can produce.
type Format struct {
	// Marshal a value to a given writer (e.g. response body).
	Marshal func(writer io.Writer, v any) error

	// Unmarshal a value into a shape from a given byte slice. Clients and
	// tests use it to read problem responses back.
	Unmarshal func(data []byte, v any) error
}

// DefaultJSONFormat is the default JSON formatter that can be set in the
// builder's formats map.
//
//	exhandler.NewBuilder().Formats(map[string]exhandler.Format{
//		"application/json":         exhandler.DefaultJSONFormat,
//		"application/problem+json": exhandler.DefaultJSONFormat,
//	})
var DefaultJSONFormat = Format{
	Marshal: func(w io.Writer, v any) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	},
	Unmarshal: json.Unmarshal,
}

// DefaultXMLFormat is the default XML formatter. Problem bodies are encoded
// as a `problem` element in the `urn:ietf:rfc:7807` namespace.
var DefaultXMLFormat = Format{
	Marshal: func(w io.Writer, v any) error {
		if _, err := io.WriteString(w, xml.Header); err != nil {
			return err
		}
		return xml.NewEncoder(w).Encode(v)
	},
	Unmarshal: xml.Unmarshal,
}

// DefaultFormats is a map of default formats used for content negotiation
// when the builder is not given any. It can be modified to add or remove
// formats before building a resolver. For example, to add support for CBOR,
// simply import it:
//
//	import _ "github.com/danielgtaylor/exhandler/formats/cbor"
var DefaultFormats = map[string]Format{
	"application/json":         DefaultJSONFormat,
	"application/problem+json": DefaultJSONFormat,
	"application/xml":          DefaultXMLFormat,
	"application/problem+xml":  DefaultXMLFormat,
	"text/xml":                 DefaultXMLFormat,
}

// DefaultContentType is used when the client does not send an `Accept`
// header or accepts nothing the resolver can produce.
const DefaultContentType = "application/json"
