package codec

import (
	"image"

	"golang.org/x/image/draw"
)

// Raster is a decoded swatch image stored as tightly packed 8-bit BGRA rows,
// the channel order the renderer uploads into textures.
type Raster struct {
	Width  int
	Height int
	Pix    []byte
}

// Stride returns the number of bytes per row
func (r *Raster) Stride() int {
	return r.Width * 4
}

// FromImage converts any decoded image into a BGRA raster.
// Opaque sources (JPEG, grayscale) end up with alpha 255.
func FromImage(src image.Image) *Raster {
	b := src.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(nrgba, image.Point{}, src, b, draw.Src, nil)

	pix := nrgba.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}

	return &Raster{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    pix,
	}
}

// NRGBA returns a copy of the raster in Go's standard RGBA channel order
func (r *Raster) NRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	copy(img.Pix, r.Pix)
	for i := 0; i+3 < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
	}
	return img
}
