// Package qr renders QR symbols as colored PNG and SVG images on top of
// the go-qrcode encoder.
package qr

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/color"

	"github.com/skip2/go-qrcode"
)

// QuietZone is the border width, in modules, that go-qrcode draws around
// every symbol unless the border is disabled.
const QuietZone = 4

// DataURLPrefix is prepended to the base64 PNG payload returned by DataURL.
const DataURLPrefix = "data:image/png;base64,"

var (
	// ErrEmptyContent is returned when asked to encode an empty string.
	ErrEmptyContent = errors.New("qr: empty content")
)

// Options configures a Renderer.
type Options struct {
	// Level is the error recovery level. The symbol version is always the
	// smallest one that fits the content at this level.
	Level qrcode.RecoveryLevel
	// ModuleSize is the edge length of one module in pixels.
	ModuleSize int
	// DisableBorder drops the quiet zone.
	DisableBorder bool
}

// DefaultOptions returns the parameters used by the web endpoint: medium
// recovery, 10px modules and a 4 module quiet zone.
func DefaultOptions() Options {
	return Options{
		Level:      qrcode.Medium,
		ModuleSize: 10,
	}
}

// Renderer turns text into QR images. It holds no mutable state and is
// safe for concurrent use.
type Renderer struct {
	opts Options
}

// New returns a Renderer for opts. A non-positive module size falls back
// to the default.
func New(opts Options) *Renderer {
	if opts.ModuleSize <= 0 {
		opts.ModuleSize = DefaultOptions().ModuleSize
	}
	return &Renderer{opts: opts}
}

// Options returns the renderer's effective options.
func (r *Renderer) Options() Options { return r.opts }

func (r *Renderer) symbol(content string, fg, bg color.Color) (*qrcode.QRCode, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	q, err := qrcode.New(content, r.opts.Level)
	if err != nil {
		return nil, fmt.Errorf("encode qr symbol: %w", err)
	}
	q.ForegroundColor = fg
	q.BackgroundColor = bg
	q.DisableBorder = r.opts.DisableBorder
	return q, nil
}

// PNG encodes content and returns the PNG bytes. The image is square with
// an edge of (symbol modules + quiet zone) * ModuleSize pixels.
func (r *Renderer) PNG(content string, fg, bg color.Color) ([]byte, error) {
	q, err := r.symbol(content, fg, bg)
	if err != nil {
		return nil, err
	}
	// A negative size asks go-qrcode for a fixed number of pixels per module.
	b, err := q.PNG(-r.opts.ModuleSize)
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return b, nil
}

// DataURL is PNG wrapped as a data:image/png;base64 URL usable directly as
// an <img> src.
func (r *Renderer) DataURL(content string, fg, bg color.Color) (string, error) {
	b, err := r.PNG(content, fg, bg)
	if err != nil {
		return "", err
	}
	return DataURLPrefix + base64.StdEncoding.EncodeToString(b), nil
}

// SVG renders the same symbol as PNG as an SVG document with one rect per
// dark module.
func (r *Renderer) SVG(content string, fg, bg color.Color) ([]byte, error) {
	q, err := r.symbol(content, fg, bg)
	if err != nil {
		return nil, err
	}
	bitmap := q.Bitmap()
	n := len(bitmap)
	if n == 0 {
		return nil, fmt.Errorf("encode svg: empty bitmap")
	}
	ppm := r.opts.ModuleSize
	w := n * ppm
	fill, bgFill := svgColor(fg), svgColor(bg)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, w, w, w, w)
	fmt.Fprintf(&buf, `<rect width="100%%" height="100%%" %s/>`, bgFill)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if bitmap[y][x] {
				fmt.Fprintf(&buf, `<rect x="%d" y="%d" width="%d" height="%d" %s/>`, x*ppm, y*ppm, ppm, ppm, fill)
			}
		}
	}
	buf.WriteString(`</svg>`)
	return buf.Bytes(), nil
}

func svgColor(c color.Color) string {
	rgba := color.NRGBAModel.Convert(c).(color.NRGBA)
	attr := fmt.Sprintf(`fill="#%02x%02x%02x"`, rgba.R, rgba.G, rgba.B)
	if rgba.A != 0xff {
		attr += fmt.Sprintf(` fill-opacity="%.3f"`, float64(rgba.A)/255)
	}
	return attr
}
