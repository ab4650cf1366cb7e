package protobuf

import (
	"bytes"
	"testing"

	"github.com/danielgtaylor/exhandler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestRoundTrip(t *testing.T) {
	msg := &exhandler.ErrorMessage{Title: "Conflict", Status: 409}

	buf := &bytes.Buffer{}
	require.NoError(t, DefaultProtobufFormat.Marshal(buf, msg))

	s := &structpb.Struct{}
	require.NoError(t, DefaultProtobufFormat.Unmarshal(buf.Bytes(), s))
	assert.Equal(t, "Conflict", s.Fields["title"].GetStringValue())
	assert.EqualValues(t, 409, s.Fields["status"].GetNumberValue())

	var out exhandler.ErrorMessage
	require.NoError(t, DefaultProtobufFormat.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, 409, out.Status)
}

func TestToStructRejectsScalars(t *testing.T) {
	_, err := ToStruct(42)
	assert.Error(t, err)
}
