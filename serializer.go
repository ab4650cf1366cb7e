package exhandler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/exhandler/negotiation"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	// ErrNotAcceptable is returned when none of the configured formats can
	// produce a representation the client accepts.
	ErrNotAcceptable = errors.New("no acceptable representation")

	// ErrUnknownFormat is returned when no format is registered for a
	// content type.
	ErrUnknownFormat = errors.New("unknown content type")
)

// serializer writes responses, negotiating the content type against the
// configured formats. It is immutable once built.
type serializer struct {
	formats     map[string]Format
	offered     []string
	defaultType string
}

func newSerializer(formats map[string]Format, defaultType string) *serializer {
	s := &serializer{
		formats:     maps.Clone(formats),
		defaultType: defaultType,
	}

	// The default type is offered first so that it wins ties, followed by
	// the rest in a stable order.
	keys := maps.Keys(formats)
	slices.Sort(keys)
	if _, ok := formats[defaultType]; ok {
		s.offered = append(s.offered, defaultType)
	}
	for _, k := range keys {
		if k != defaultType {
			s.offered = append(s.offered, k)
		}
	}
	return s
}

// negotiate returns the content type to use for the `Accept` header. An
// empty header selects the default type.
func (s *serializer) negotiate(accept string) (string, error) {
	if strings.TrimSpace(accept) == "" {
		return s.defaultType, nil
	}
	ct, ok := negotiation.SelectMediaType(accept, s.offered)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotAcceptable, accept)
	}
	return ct, nil
}

// encode marshals the body with the format for ct into a buffer, returning
// the content type to send.
func (s *serializer) encode(ct string, body any) (*bytes.Buffer, string, error) {
	f, ok := s.formats[ct]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownFormat, ct)
	}

	buf := &bytes.Buffer{}
	if err := f.Marshal(buf, body); err != nil {
		return nil, "", fmt.Errorf("unable to marshal %s: %w", ct, err)
	}

	if ctf, ok := body.(ContentTypeFilter); ok {
		ct = ctf.ContentType(ct)
	}
	return buf, ct, nil
}

// serialize encodes the response body for the `Accept` header. If the
// client's preference cannot be produced, it retries once with the default
// content type. Nothing is written here, so a failure leaves the response
// untouched.
func (s *serializer) serialize(accept string, body any) (*bytes.Buffer, string, error) {
	ct, err := s.negotiate(accept)
	if err == nil {
		buf, outCT, encErr := s.encode(ct, body)
		if encErr == nil || ct == s.defaultType {
			return buf, outCT, encErr
		}
		err = fmt.Errorf("%w: %v", ErrNotAcceptable, encErr)
	}
	if !errors.Is(err, ErrNotAcceptable) {
		return nil, "", err
	}
	return s.encode(s.defaultType, body)
}

// write sends the response: handler headers, content type, status, body.
// Entity headers already on w that do not describe the body are removed.
func (s *serializer) write(w http.ResponseWriter, r *http.Request, resp *Response) error {
	var buf *bytes.Buffer
	var ct string
	if resp.Body != nil {
		var err error
		if buf, ct, err = s.serialize(r.Header.Get("Accept"), resp.Body); err != nil {
			return err
		}
	}

	h := w.Header()
	for k, values := range resp.Header {
		h.Del(k)
		for _, v := range values {
			h.Add(k, v)
		}
	}
	if buf != nil {
		h.Set("Content-Type", ct)
		h.Set("Content-Length", strconv.Itoa(buf.Len()))
	} else {
		// Drop entity headers left by whatever failed before us.
		h.Del("Content-Type")
		h.Del("Content-Length")
	}
	h.Del("Content-Encoding")
	w.WriteHeader(resp.Status)
	if buf != nil && r.Method != http.MethodHead {
		_, err := w.Write(buf.Bytes())
		return err
	}
	return nil
}
