package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/config"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeline() *Pipeline {
	return CreatePipeline(config.ImageConfig{}, 0)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.NRGBA{R: 200, A: 128})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func gifBytes(t *testing.T, w, h, frames int) []byte {
	t.Helper()
	anim := &gif.GIF{}
	for i := 0; i < frames; i++ {
		anim.Image = append(anim.Image, image.NewPaletted(image.Rect(0, 0, w, h), []color.Color{color.Black, color.White}))
		anim.Delay = append(anim.Delay, 10)
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, anim))
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestFitInside(t *testing.T) {
	testCases := []struct {
		Name             string
		W, H             int
		MaxW, MaxH       int
		ExpectW, ExpectH int
	}{
		{Name: "already inside", W: 800, H: 600, MaxW: 2048, MaxH: 2048, ExpectW: 800, ExpectH: 600},
		{Name: "landscape", W: 4096, H: 2048, MaxW: 2048, MaxH: 2048, ExpectW: 2048, ExpectH: 1024},
		{Name: "portrait", W: 1000, H: 3000, MaxW: 300, MaxH: 300, ExpectW: 100, ExpectH: 300},
		{Name: "extreme ratio keeps one pixel", W: 10000, H: 1, MaxW: 300, MaxH: 300, ExpectW: 300, ExpectH: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			w, h := FitInside(tc.W, tc.H, tc.MaxW, tc.MaxH)
			assert.Equal(t, tc.ExpectW, w)
			assert.Equal(t, tc.ExpectH, h)
		})
	}
}

func TestProcess_RejectsUnsupportedType(t *testing.T) {
	_, err := newPipeline().Process([]byte("BM...."), "image/bmp", Options{})
	assert.ErrorIs(t, err, errs.ErrUnsupportedMediaType)
}

func TestProcess_RejectsMismatchedContent(t *testing.T) {
	_, err := newPipeline().Process(pngBytes(t, 4, 4), "image/jpeg", Options{})
	assert.ErrorIs(t, err, errs.ErrUnsupportedMediaType)
}

func TestProcess_RejectsOversizedJPEG(t *testing.T) {
	data := make([]byte, 15<<20)
	copy(data, []byte{0xFF, 0xD8, 0xFF, 0xE0})

	_, err := newPipeline().Process(data, "image/jpeg", Options{})
	assert.ErrorIs(t, err, errs.ErrPayloadTooLarge)
}

func TestProcess_DownscalesWithoutEnlarging(t *testing.T) {
	p := newPipeline()

	res, err := p.Process(pngBytes(t, 3000, 1500), "image/png", Options{})
	require.NoError(t, err)
	assert.Equal(t, TypeJPEG, res.Primary.ContentType)
	w, h := decodeSize(t, res.Primary.Data)
	assert.Equal(t, 2048, w)
	assert.Equal(t, 1024, h)
	assert.Nil(t, res.Thumbnail)

	res, err = p.Process(jpegBytes(t, 640, 480), "image/jpg", Options{})
	require.NoError(t, err)
	w, h = decodeSize(t, res.Primary.Data)
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
}

func TestProcess_ThumbnailFitsBox(t *testing.T) {
	res, err := newPipeline().Process(jpegBytes(t, 1200, 900), "image/jpeg", Options{GenerateThumbnail: true})
	require.NoError(t, err)
	require.NotNil(t, res.Thumbnail)

	w, h := decodeSize(t, res.Thumbnail.Data)
	assert.LessOrEqual(t, w, ThumbnailSize)
	assert.LessOrEqual(t, h, ThumbnailSize)
	assert.Equal(t, 300, w)
	assert.Equal(t, 225, h)
}

func TestProcess_SmallThumbnailNotEnlarged(t *testing.T) {
	res, err := newPipeline().Process(pngBytes(t, 120, 80), "image/png", Options{GenerateThumbnail: true})
	require.NoError(t, err)

	w, h := decodeSize(t, res.Thumbnail.Data)
	assert.Equal(t, 120, w)
	assert.Equal(t, 80, h)
}

func TestProcess_GIFPassesThrough(t *testing.T) {
	data := gifBytes(t, 400, 400, 3)

	res, err := newPipeline().Process(data, "image/gif", Options{GenerateThumbnail: true})
	require.NoError(t, err)
	assert.Equal(t, data, res.Primary.Data)
	assert.Equal(t, TypeGIF, res.Primary.ContentType)

	anim, err := gif.DecodeAll(bytes.NewReader(res.Primary.Data))
	require.NoError(t, err)
	assert.Len(t, anim.Image, 3)

	require.NotNil(t, res.Thumbnail)
	assert.Equal(t, TypeJPEG, res.Thumbnail.ContentType)
	w, h := decodeSize(t, res.Thumbnail.Data)
	assert.Equal(t, 300, w)
	assert.Equal(t, 300, h)
}

func TestProcessAll_KeepsOrder(t *testing.T) {
	p := newPipeline()
	inputs := []Input{
		{Name: "a.png", Data: pngBytes(t, 10, 20), ContentType: "image/png"},
		{Name: "b.jpg", Data: jpegBytes(t, 30, 40), ContentType: "image/jpeg"},
		{Name: "c.png", Data: pngBytes(t, 50, 60), ContentType: "image/png"},
	}

	results, err := p.ProcessAll(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 10, results[0].Primary.Width)
	assert.Equal(t, 30, results[1].Primary.Width)
	assert.Equal(t, 50, results[2].Primary.Width)
}

func TestProcessAll_FailsOnBadInput(t *testing.T) {
	inputs := []Input{
		{Name: "a.png", Data: pngBytes(t, 10, 20), ContentType: "image/png"},
		{Name: "b.bmp", Data: []byte("BM"), ContentType: "image/bmp"},
	}

	_, err := newPipeline().ProcessAll(context.Background(), inputs)
	assert.ErrorIs(t, err, errs.ErrUnsupportedMediaType)
	assert.Contains(t, err.Error(), "b.bmp")
}

func TestResolveResizeOptions(t *testing.T) {
	opts, err := ResolveResizeOptions("card", ResizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, ResizeOptions{Width: 600, Height: 600, Quality: 80}, opts)

	opts, err = ResolveResizeOptions("gallery", ResizeOptions{Width: 500})
	require.NoError(t, err)
	assert.Equal(t, 500, opts.Width)

	_, err = ResolveResizeOptions("poster", ResizeOptions{})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = ResolveResizeOptions("", ResizeOptions{Width: 5000})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestResize(t *testing.T) {
	d, err := newPipeline().Resize(pngBytes(t, 1000, 500), "image/png", ResizeOptions{Width: 300, Height: 300, Quality: 70})
	require.NoError(t, err)

	w, h := decodeSize(t, d.Data)
	assert.Equal(t, 300, w)
	assert.Equal(t, 150, h)
}
