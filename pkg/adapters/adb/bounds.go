package adb

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"github.com/antchfx/xmlquery"
)

var boundsRe = regexp.MustCompile(`^\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]$`)

// Bounds is a node rectangle as reported by uiautomator.
type Bounds struct {
	Left, Top, Right, Bottom int
}

// ParseBounds parses "[x1,y1][x2,y2]".
func ParseBounds(s string) (Bounds, error) {
	m := boundsRe.FindStringSubmatch(s)
	if m == nil {
		return Bounds{}, fmt.Errorf("invalid bounds %q", s)
	}
	var v [4]int
	for i := range v {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Bounds{}, fmt.Errorf("invalid bounds %q: %w", s, err)
		}
		v[i] = n
	}
	return Bounds{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}, nil
}

// Center returns the midpoint of the rectangle.
func (b Bounds) Center() (float64, float64) {
	return float64(b.Left+b.Right) / 2, float64(b.Top+b.Bottom) / 2
}

// FindText returns the centre of the first node, in document order, whose text attribute equals text.
func FindText(dump []byte, text string) (float64, float64, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(dump))
	if err != nil {
		return 0, 0, fmt.Errorf("parse hierarchy: %w", err)
	}
	for _, n := range xmlquery.Find(doc, "//node[@text]") {
		if n.SelectAttr("text") != text {
			continue
		}
		b, err := ParseBounds(n.SelectAttr("bounds"))
		if err != nil {
			return 0, 0, err
		}
		x, y := b.Center()
		return x, y, nil
	}
	return 0, 0, fmt.Errorf("%w: text %q", ErrElementNotFound, text)
}
