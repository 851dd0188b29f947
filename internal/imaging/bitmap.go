// internal/imaging/bitmap.go
package imaging

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Threshold is the luminance below which a pixel prints black
const Threshold = 128

// Bitmap is a 1-bit raster packed 8 pixels per byte, MSB first, row-major.
// Each row occupies BytesPerRow bytes; trailing bits of a row are clear.
type Bitmap struct {
	Data   []byte
	Width  int
	Height int
}

// BytesPerRow returns ceil(Width/8)
func (b *Bitmap) BytesPerRow() int {
	return (b.Width + 7) / 8
}

// At reports whether the pixel at x,y is black
func (b *Bitmap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return false
	}
	idx := y*b.BytesPerRow() + x/8
	return b.Data[idx]&(0x80>>(x%8)) != 0
}

// TargetSize returns the output size for a source of nw x nh pixels
// limited to maxWidth, keeping the aspect ratio.
func TargetSize(nw, nh, maxWidth int) (int, int) {
	if nw <= 0 || nh <= 0 || maxWidth <= 0 {
		return 0, 0
	}
	width := nw
	if maxWidth < width {
		width = maxWidth
	}
	height := int(math.Round(float64(width) * float64(nh) / float64(nw)))
	if height < 1 {
		height = 1
	}
	return width, height
}

// ToBitmap scales img to at most maxWidth pixels wide on a white canvas and
// thresholds it to a packed monochrome bitmap.
func ToBitmap(img image.Image, maxWidth int) *Bitmap {
	bounds := img.Bounds()
	width, height := TargetSize(bounds.Dx(), bounds.Dy(), maxWidth)
	if width == 0 {
		return &Bitmap{}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	if width == bounds.Dx() && height == bounds.Dy() {
		xdraw.Draw(canvas, canvas.Bounds(), img, bounds.Min, xdraw.Over)
	} else {
		xdraw.ApproxBiLinear.Scale(canvas, canvas.Bounds(), img, bounds, xdraw.Over, nil)
	}

	return pack(canvas)
}

// pack thresholds an opaque canvas into a Bitmap
func pack(canvas *image.RGBA) *Bitmap {
	width, height := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	bmp := &Bitmap{Width: width, Height: height}
	rowBytes := bmp.BytesPerRow()
	bmp.Data = make([]byte, rowBytes*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := canvas.PixOffset(x, y)
			r, g, b := int(canvas.Pix[off]), int(canvas.Pix[off+1]), int(canvas.Pix[off+2])
			if (r+g+b)/3 < Threshold {
				bmp.Data[y*rowBytes+x/8] |= 0x80 >> (x % 8)
			}
		}
	}

	return bmp
}

// Preview renders the bitmap back into a grayscale image
func (b *Bitmap) Preview() image.Image {
	img := image.NewGray(image.Rect(0, 0, b.Width, b.Height))
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			if b.At(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}
