// Package protobuf provides a Protocol Buffers formatter for problem
// responses. Bodies are sent as a `google.protobuf.Struct` built from their
// JSON form, so clients need no generated types to read them. Importing this
// package adds protobuf support to `exhandler.DefaultFormats`.
package protobuf

import (
	"io"

	"github.com/danielgtaylor/exhandler"
	"github.com/goccy/go-json"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct converts a value to a protobuf Struct via its JSON encoding.
func ToStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// DefaultProtobufFormat encodes bodies as a `google.protobuf.Struct`.
// Unmarshal decodes into a `*structpb.Struct` or a `*map[string]any`.
var DefaultProtobufFormat = exhandler.Format{
	Marshal: func(w io.Writer, v any) error {
		var msg proto.Message
		if m, ok := v.(proto.Message); ok {
			msg = m
		} else {
			s, err := ToStruct(v)
			if err != nil {
				return err
			}
			msg = s
		}
		b, err := proto.Marshal(msg)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	},
	Unmarshal: func(data []byte, v any) error {
		if m, ok := v.(proto.Message); ok {
			return proto.Unmarshal(data, m)
		}
		s := &structpb.Struct{}
		if err := proto.Unmarshal(data, s); err != nil {
			return err
		}
		if m, ok := v.(*map[string]any); ok {
			*m = s.AsMap()
			return nil
		}
		b, err := json.Marshal(s.AsMap())
		if err != nil {
			return err
		}
		return json.Unmarshal(b, v)
	},
}

func init() {
	exhandler.DefaultFormats["application/protobuf"] = DefaultProtobufFormat
	exhandler.DefaultFormats["application/x-protobuf"] = DefaultProtobufFormat
}
