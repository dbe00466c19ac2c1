package imaging

import (
	"bytes"
	"fmt"
	"image"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
)

const (
	maxResizeDimension = 4000
	defaultResizeW     = 800
	defaultResizeH     = 600
	defaultResizeQ     = 80
)

type ResizeOptions struct {
	Width   int
	Height  int
	Quality int
}

var Presets = map[string]ResizeOptions{
	"thumbnail":  {Width: 300, Height: 300, Quality: 70},
	"card":       {Width: 600, Height: 600, Quality: 80},
	"gallery":    {Width: 1200, Height: 1200, Quality: 90},
	"fullscreen": {Width: 2400, Height: 2400, Quality: 95},
}

// ResolveResizeOptions fills zero values from preset, then from the service
// defaults, and validates the result.
func ResolveResizeOptions(preset string, opts ResizeOptions) (ResizeOptions, error) {
	if preset != "" {
		p, ok := Presets[preset]
		if !ok {
			return opts, fmt.Errorf("%w: unknown preset %q", errs.ErrValidation, preset)
		}
		opts.Width = orDefault(opts.Width, p.Width)
		opts.Height = orDefault(opts.Height, p.Height)
		opts.Quality = orDefault(opts.Quality, p.Quality)
	}

	opts.Width = orDefault(opts.Width, defaultResizeW)
	opts.Height = orDefault(opts.Height, defaultResizeH)
	opts.Quality = orDefault(opts.Quality, defaultResizeQ)

	if opts.Width > maxResizeDimension || opts.Height > maxResizeDimension {
		return opts, fmt.Errorf("%w: width and height must be between 1 and %d", errs.ErrValidation, maxResizeDimension)
	}
	if opts.Quality > 100 {
		return opts, fmt.Errorf("%w: quality must be between 1 and 100", errs.ErrValidation)
	}

	return opts, nil
}

// Resize fits an image into opts without enlarging it and re-encodes it as JPEG.
func (p *Pipeline) Resize(data []byte, declaredType string, opts ResizeOptions) (Derivative, error) {
	if err := p.Validate(declaredType, int64(len(data))); err != nil {
		return Derivative{}, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Derivative{}, fmt.Errorf("%w: cannot read image header: %v", errs.ErrValidation, err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return Derivative{}, fmt.Errorf("%w: image is %dx%d pixels", errs.ErrPayloadTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Derivative{}, fmt.Errorf("%w: cannot decode image: %v", errs.ErrValidation, err)
	}

	return encodeJPEG(src, opts.Width, opts.Height, clampQuality(opts.Quality))
}
