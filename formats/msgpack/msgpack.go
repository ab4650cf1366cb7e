// Package msgpack provides a MessagePack formatter for problem responses.
// Importing this package adds MessagePack support to
// `exhandler.DefaultFormats`.
package msgpack

import (
	"io"

	"github.com/danielgtaylor/exhandler"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultMsgPackFormat encodes bodies with their `msgpack` struct tags.
var DefaultMsgPackFormat = exhandler.Format{
	Marshal: func(w io.Writer, v any) error {
		enc := msgpack.NewEncoder(w)
		enc.SetOmitEmpty(true)
		return enc.Encode(v)
	},
	Unmarshal: msgpack.Unmarshal,
}

func init() {
	exhandler.DefaultFormats["application/msgpack"] = DefaultMsgPackFormat
	exhandler.DefaultFormats["application/x-msgpack"] = DefaultMsgPackFormat
	exhandler.DefaultFormats["application/vnd.msgpack"] = DefaultMsgPackFormat
}
