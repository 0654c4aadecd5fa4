package main

import (
	"fmt"
	"io"
	"os"

	"github.com/openclaw/qrgen/qr"
)

type generateOptions struct {
	FG         string
	BG         string
	Format     string
	Out        string
	ModuleSize int
}

// runGenerate renders text with the same pipeline as POST /generate and
// writes the result to opts.Out, or to stdout when Out is empty.
func runGenerate(stdout io.Writer, text string, opts generateOptions) error {
	fg, err := qr.ParseColor(opts.FG)
	if err != nil {
		return fmt.Errorf("--fg: %w", err)
	}
	bg, err := qr.ParseColor(opts.BG)
	if err != nil {
		return fmt.Errorf("--bg: %w", err)
	}

	ropts := qr.DefaultOptions()
	ropts.ModuleSize = opts.ModuleSize
	r := qr.New(ropts)

	var out []byte
	switch opts.Format {
	case "png":
		out, err = r.PNG(text, fg, bg)
	case "svg":
		out, err = r.SVG(text, fg, bg)
	case "dataurl":
		var s string
		s, err = r.DataURL(text, fg, bg)
		out = []byte(s + "\n")
	default:
		return fmt.Errorf("unknown format %q (want png, svg or dataurl)", opts.Format)
	}
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	if opts.Out == "" {
		_, err = stdout.Write(out)
		return err
	}
	if err := os.WriteFile(opts.Out, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.Out, err)
	}
	return nil
}
