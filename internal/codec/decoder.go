package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// Format names the single compressed image format a Decoder accepts
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
	FormatTGA  Format = "tga"
)

// ErrUnsupportedFormat is returned for format names no decoder exists for
var ErrUnsupportedFormat = errors.New("unsupported image format")

var decoders = map[Format]func(io.Reader) (image.Image, error){
	FormatJPEG: jpeg.Decode,
	FormatPNG:  png.Decode,
	FormatWebP: webp.Decode,
	FormatBMP:  bmp.Decode,
	FormatTIFF: tiff.Decode,
	FormatTGA:  tga.Decode,
}

// ParseFormat resolves a user-supplied format name. "jpg" and "tif" are
// accepted as aliases.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	switch f {
	case "jpg":
		f = FormatJPEG
	case "tif":
		f = FormatTIFF
	}
	if _, ok := decoders[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
	return f, nil
}

// Decoder turns compressed bytes of one fixed format into a BGRA raster.
// Bytes in any other format fail to decode; there is no sniffing.
type Decoder struct {
	format Format
	decode func(io.Reader) (image.Image, error)
}

// NewDecoder creates a decoder for the given format
func NewDecoder(format Format) (*Decoder, error) {
	decode, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return &Decoder{format: format, decode: decode}, nil
}

// Format returns the format this decoder accepts
func (d *Decoder) Format() Format {
	return d.format
}

// Decode decodes data into a BGRA raster
func (d *Decoder) Decode(data []byte) (*Raster, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("failed to decode %s: empty body", d.format)
	}

	img, err := d.decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", d.format, err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("failed to decode %s: empty image %dx%d", d.format, b.Dx(), b.Dy())
	}

	return FromImage(img), nil
}
