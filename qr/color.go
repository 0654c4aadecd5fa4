package qr

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/mazznoer/csscolorparser"
)

// ErrInvalidColor is wrapped by every ParseColor failure.
var ErrInvalidColor = errors.New("qr: invalid color")

// ParseColor parses any CSS color: named colors, "transparent", hex,
// rgb()/rgba() with numbers or percentages, hsl(), hwb() and friends.
func ParseColor(s string) (color.RGBA, error) {
	if strings.TrimSpace(s) == "" {
		return color.RGBA{}, fmt.Errorf("%w: empty value", ErrInvalidColor)
	}
	c, err := csscolorparser.Parse(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q: %v", ErrInvalidColor, s, err)
	}
	r, g, b, a := c.RGBA255()
	// color.RGBA is alpha-premultiplied, CSS colors are not.
	return color.RGBAModel.Convert(color.NRGBA{R: r, G: g, B: b, A: a}).(color.RGBA), nil
}
