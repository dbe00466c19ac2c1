package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"net/http"
	"runtime"
	"strings"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/config"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/infrastructure/metrics"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

const (
	TypeJPEG = "image/jpeg"
	TypePNG  = "image/png"
	TypeWebP = "image/webp"
	TypeGIF  = "image/gif"

	DefaultMaxBytes         = 10 << 20
	DefaultMaxDimension     = 2048
	DefaultQuality          = 85
	ThumbnailSize           = 300
	DefaultThumbnailQuality = 80

	// maxPixels bounds decoded image size regardless of the encoded byte size.
	maxPixels = 100_000_000
)

var allowedTypes = map[string]bool{
	TypeJPEG: true,
	TypePNG:  true,
	TypeWebP: true,
	TypeGIF:  true,
}

type Options struct {
	MaxWidth          int
	MaxHeight         int
	Quality           int
	GenerateThumbnail bool
	ThumbnailQuality  int
}

type Derivative struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
}

type Result struct {
	Primary   Derivative
	Thumbnail *Derivative
}

type Input struct {
	Name        string
	Data        []byte
	ContentType string
	Options     Options
}

type Pipeline struct {
	defaults Options
	maxBytes int64
	workers  int
}

func CreatePipeline(conf config.ImageConfig, maxBytes int64) *Pipeline {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	return &Pipeline{
		defaults: Options{
			MaxWidth:         orDefault(conf.MaxWidth, DefaultMaxDimension),
			MaxHeight:        orDefault(conf.MaxHeight, DefaultMaxDimension),
			Quality:          orDefault(conf.Quality, DefaultQuality),
			ThumbnailQuality: orDefault(conf.ThumbnailQuality, DefaultThumbnailQuality),
		},
		maxBytes: maxBytes,
		workers:  runtime.GOMAXPROCS(0),
	}
}

// DefaultOptions returns the configured options with the thumbnail flag set.
func (p *Pipeline) DefaultOptions(thumbnail bool) Options {
	opts := p.defaults
	opts.GenerateThumbnail = thumbnail
	return opts
}

// Validate checks declared type and size without decoding.
func (p *Pipeline) Validate(declaredType string, size int64) error {
	contentType := NormalizeType(declaredType)
	if !allowedTypes[contentType] {
		return fmt.Errorf("%w: %q is not one of jpeg, png, webp, gif", errs.ErrUnsupportedMediaType, declaredType)
	}
	if size > p.maxBytes {
		return fmt.Errorf("%w: image is %d bytes, limit is %d", errs.ErrPayloadTooLarge, size, p.maxBytes)
	}
	return nil
}

// Process produces the primary derivative and, when requested, a thumbnail.
// It has no side effects.
func (p *Pipeline) Process(data []byte, declaredType string, opts Options) (res Result, err error) {
	if err = p.Validate(declaredType, int64(len(data))); err != nil {
		return res, err
	}

	contentType := NormalizeType(declaredType)
	if sniffed := http.DetectContentType(data); sniffed != contentType {
		return res, fmt.Errorf("%w: declared %s but content is %s", errs.ErrUnsupportedMediaType, contentType, sniffed)
	}

	opts = p.withDefaults(opts)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return res, fmt.Errorf("%w: cannot read image header: %v", errs.ErrValidation, err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return res, fmt.Errorf("%w: image is %dx%d pixels", errs.ErrPayloadTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return res, fmt.Errorf("%w: cannot decode image: %v", errs.ErrValidation, err)
	}

	if contentType == TypeGIF {
		res.Primary = Derivative{
			Data:        data,
			ContentType: TypeGIF,
			Ext:         ".gif",
			Width:       cfg.Width,
			Height:      cfg.Height,
		}
		metrics.ImageDerivatives.WithLabelValues("passthrough").Inc()
	} else {
		res.Primary, err = encodeJPEG(src, opts.MaxWidth, opts.MaxHeight, opts.Quality)
		if err != nil {
			return res, err
		}
		metrics.ImageDerivatives.WithLabelValues("primary").Inc()
	}

	if opts.GenerateThumbnail {
		thumb, err := encodeJPEG(src, ThumbnailSize, ThumbnailSize, opts.ThumbnailQuality)
		if err != nil {
			return res, err
		}
		res.Thumbnail = &thumb
		metrics.ImageDerivatives.WithLabelValues("thumbnail").Inc()
	}

	return res, nil
}

// ProcessAll runs Process for every input on a bounded set of goroutines.
// Results keep input order; the first failure cancels the rest.
func (p *Pipeline) ProcessAll(ctx context.Context, inputs []Input) ([]Result, error) {
	results := make([]Result, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			r, err := p.Process(in.Data, in.ContentType, in.Options)
			if err != nil {
				return fmt.Errorf("%s: %w", in.Name, err)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (p *Pipeline) withDefaults(opts Options) Options {
	opts.MaxWidth = orDefault(opts.MaxWidth, p.defaults.MaxWidth)
	opts.MaxHeight = orDefault(opts.MaxHeight, p.defaults.MaxHeight)
	opts.Quality = clampQuality(orDefault(opts.Quality, p.defaults.Quality))
	opts.ThumbnailQuality = clampQuality(orDefault(opts.ThumbnailQuality, p.defaults.ThumbnailQuality))
	return opts
}

// NormalizeType lower-cases a MIME type, drops parameters and maps aliases.
func NormalizeType(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	switch contentType {
	case "image/jpg", "image/pjpeg":
		return TypeJPEG
	case "image/x-png":
		return TypePNG
	}
	return contentType
}

// FitInside scales w x h down to fit maxW x maxH keeping the aspect ratio.
// Sizes already inside the box are returned unchanged.
func FitInside(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}

	ratio := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := int(math.Round(float64(w) * ratio))
	nh := int(math.Round(float64(h) * ratio))

	return min(max(nw, 1), maxW), min(max(nh, 1), maxH)
}

func encodeJPEG(src image.Image, maxW, maxH, quality int) (Derivative, error) {
	b := src.Bounds()
	w, h := FitInside(b.Dx(), b.Dy(), maxW, maxH)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return Derivative{}, fmt.Errorf("%w: encoding jpeg: %v", errs.ErrInternalServer, err)
	}

	return Derivative{
		Data:        buf.Bytes(),
		ContentType: TypeJPEG,
		Ext:         ".jpg",
		Width:       w,
		Height:      h,
	}, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func clampQuality(q int) int {
	return min(max(q, 1), 100)
}
