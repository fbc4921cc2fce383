// Package tileurl expands tile-server URL templates such as
// "https://tile.example.org/{zoom}/{x}/{y}.png".
//
// A template is split on every '{' and '}' character. Each resulting segment
// that is exactly "zoom", "x" or "y" is replaced with the corresponding
// decimal value; every other segment is copied through unchanged. The braces
// themselves are never emitted, so an unknown placeholder like "{style}"
// expands to the bare word "style", and unbalanced braces are simply dropped.
package tileurl

import (
	"strconv"
	"strings"
)

type segmentKind int

const (
	literal segmentKind = iota
	zoomToken
	xToken
	yToken
)

type segment struct {
	kind segmentKind
	text string
}

// Template is a pre-split URL template. The zero value expands to "".
type Template struct {
	raw      string
	segments []segment
}

// Parse splits template once so that it can be expanded for many tiles.
func Parse(template string) Template {
	parts := strings.FieldsFunc(template, func(r rune) bool {
		return r == '{' || r == '}'
	})

	segments := make([]segment, 0, len(parts))
	for _, p := range parts {
		switch p {
		case "zoom":
			segments = append(segments, segment{kind: zoomToken})
		case "x":
			segments = append(segments, segment{kind: xToken})
		case "y":
			segments = append(segments, segment{kind: yToken})
		default:
			segments = append(segments, segment{kind: literal, text: p})
		}
	}

	return Template{raw: template, segments: segments}
}

// Expand returns the URL for tile (zoom, x, y).
func (t Template) Expand(zoom, x, y int) string {
	var b strings.Builder
	b.Grow(len(t.raw) + 16)
	for _, s := range t.segments {
		switch s.kind {
		case zoomToken:
			b.WriteString(strconv.Itoa(zoom))
		case xToken:
			b.WriteString(strconv.Itoa(x))
		case yToken:
			b.WriteString(strconv.Itoa(y))
		default:
			b.WriteString(s.text)
		}
	}
	return b.String()
}

// HasPlaceholders reports whether the template references zoom, x and y.
func (t Template) HasPlaceholders() bool {
	var zoom, x, y bool
	for _, s := range t.segments {
		switch s.kind {
		case zoomToken:
			zoom = true
		case xToken:
			x = true
		case yToken:
			y = true
		}
	}
	return zoom && x && y
}

func (t Template) String() string {
	return t.raw
}

// Expand is shorthand for Parse(template).Expand(zoom, x, y).
func Expand(template string, zoom, x, y int) string {
	return Parse(template).Expand(zoom, x, y)
}
