package images

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	// Registered decoders: GIF and WebP sources are accepted and re-encoded as JPEG.
	_ "image/gif"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/JakeFAU/article-archiver/internal/archive"
)

const (
	defaultJPEGQuality = 85
	// DefaultMaxPixels bounds the decoded size of a single image, about 160 MiB as RGBA.
	DefaultMaxPixels = 40_000_000
)

// Encoded is a re-encoded image ready to store.
type Encoded struct {
	Data        []byte
	Ext         string
	ContentType string
	Width       int
	Height      int
}

// Process decodes data, downscales it to maxWidth when wider, and re-encodes it. PNG
// sources stay PNG so transparency survives; everything else becomes JPEG. Images whose
// header declares more than maxPixels pixels are rejected before any pixel is decoded;
// maxPixels <= 0 selects DefaultMaxPixels.
func Process(data []byte, maxWidth, quality, maxPixels int) (Encoded, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Encoded{}, fmt.Errorf("%w: decode header: %w", archive.ErrImageFetch, err)
	}
	if header.Width <= 0 || header.Height <= 0 ||
		int64(header.Width)*int64(header.Height) > int64(maxPixels) {
		return Encoded{}, fmt.Errorf("%w: %dx%d exceeds %d pixels",
			archive.ErrImageFetch, header.Width, header.Height, maxPixels)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Encoded{}, fmt.Errorf("%w: decode: %w", archive.ErrImageFetch, err)
	}

	img := Downscale(src, maxWidth)
	bounds := img.Bounds()

	var buf bytes.Buffer
	out := Encoded{Width: bounds.Dx(), Height: bounds.Dy()}
	if format == "png" {
		if err := png.Encode(&buf, img); err != nil {
			return Encoded{}, fmt.Errorf("encode png: %w", err)
		}
		out.Ext, out.ContentType = ".png", "image/png"
	} else {
		if quality < 1 || quality > 100 {
			quality = defaultJPEGQuality
		}
		if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: quality}); err != nil {
			return Encoded{}, fmt.Errorf("encode jpeg: %w", err)
		}
		out.Ext, out.ContentType = ".jpg", "image/jpeg"
	}
	out.Data = buf.Bytes()
	return out, nil
}

// Downscale returns src unchanged when it fits in maxWidth, otherwise a Catmull-Rom
// resampled copy with the same aspect ratio.
func Downscale(src image.Image, maxWidth int) image.Image {
	b := src.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return src
	}
	height := b.Dy() * maxWidth / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// flatten composites transparent pixels onto white, since JPEG has no alpha channel.
func flatten(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}
