// Package negotiation provides utilities for HTTP client-driven content
// negotiation. It selects the best media type the server can produce for an
// `Accept` header, honoring quality values and `type/*` or `*/*` ranges.
package negotiation

import (
	"strconv"
	"strings"
)

// mediaRange is a single entry of an `Accept` header.
type mediaRange struct {
	typ     string
	subtype string
	q       float64
}

// specificity of a range: 3 for `a/b`, 2 for `a/*`, 1 for `*/*`, 0 when it
// does not match the media type at all.
func (r mediaRange) match(typ, subtype string) int {
	switch {
	case r.typ == "*" && r.subtype == "*":
		return 1
	case !strings.EqualFold(r.typ, typ):
		return 0
	case r.subtype == "*":
		return 2
	case strings.EqualFold(r.subtype, subtype):
		return 3
	}
	return 0
}

// parseAccept splits a header like `a/b; q=0.5, c/*;q=1.0,*/*; q=0.3`.
// Invalid entries are skipped. A missing quality defaults to 1.
func parseAccept(header string) []mediaRange {
	ranges := make([]mediaRange, 0, strings.Count(header, ",")+1)
	for _, entry := range strings.Split(header, ",") {
		parts := strings.Split(entry, ";")
		name := strings.Trim(parts[0], " \t")
		typ, subtype, ok := strings.Cut(name, "/")
		if !ok || typ == "" || subtype == "" {
			if name == "*" {
				// Some clients send a bare `*`.
				typ, subtype = "*", "*"
			} else {
				continue
			}
		}

		q := 1.0
		for _, p := range parts[1:] {
			p = strings.Trim(p, " \t")
			if strings.HasPrefix(p, "q=") || strings.HasPrefix(p, "Q=") {
				if parsed, err := strconv.ParseFloat(p[2:], 64); err == nil {
					q = parsed
				}
			}
		}
		ranges = append(ranges, mediaRange{typ: typ, subtype: subtype, q: q})
	}
	return ranges
}

// quality returns the quality the client assigns to a media type, taken from
// the most specific matching range, and whether any range matched.
func quality(ranges []mediaRange, mediaType string) (float64, bool) {
	typ, subtype, _ := strings.Cut(mediaType, "/")
	best := 0
	q := 0.0
	for _, r := range ranges {
		if s := r.match(typ, subtype); s > best {
			best = s
			q = r.q
		}
	}
	return q, best > 0
}

// SelectMediaType selects the best media type from offered for the given
// `Accept` header. The *first* offered type is preferred if there is a tie.
// Types with a quality of zero are never selected. If nothing matches, it
// returns an empty string and false.
func SelectMediaType(header string, offered []string) (string, bool) {
	ranges := parseAccept(header)
	best := ""
	bestQ := 0.0
	for _, o := range offered {
		q, ok := quality(ranges, o)
		if !ok || q <= 0 {
			continue
		}
		if q > bestQ {
			bestQ = q
			best = o
		}
	}
	return best, best != ""
}
