package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

// Thumbnail returns the raster as an image scaled so its longest edge is at
// most maxEdge. Rasters already small enough, or maxEdge <= 0, are returned
// unscaled.
func Thumbnail(r *Raster, maxEdge int) image.Image {
	src := r.NRGBA()
	if maxEdge <= 0 || (r.Width <= maxEdge && r.Height <= maxEdge) {
		return src
	}

	w, h := maxEdge, maxEdge
	if r.Width > r.Height {
		h = max(1, r.Height*maxEdge/r.Width)
	} else {
		w = max(1, r.Width*maxEdge/r.Height)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// EncodePreview writes a lossless WebP preview of the raster
func EncodePreview(w io.Writer, r *Raster, maxEdge int) error {
	if err := nativewebp.Encode(w, Thumbnail(r, maxEdge), nil); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return nil
}

// PreviewDataURL encodes a preview as a data URL the frontend can use as an
// <img> source directly.
func PreviewDataURL(r *Raster, maxEdge int) (string, error) {
	var buf bytes.Buffer
	if err := EncodePreview(&buf, r, maxEdge); err != nil {
		return "", err
	}
	return "data:image/webp;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
