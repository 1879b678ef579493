package imaging

import (
	"fmt"
	"image"
	"image/color"

	"fortio.org/safecast"
)

// Raster is a label image held as a flat row-major slice of labels.
type Raster struct {
	Width  int
	Height int
	Pix    []uint32
}

// NewRaster allocates an all-background raster.
func NewRaster(width, height int) *Raster {
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]uint32, width*height),
	}
}

// Len returns the number of pixels.
func (r *Raster) Len() int { return len(r.Pix) }

// At returns the label at (x, y), or 0 outside the raster.
func (r *Raster) At(x, y int) uint32 {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return 0
	}
	return r.Pix[y*r.Width+x]
}

// Set writes the label at (x, y). Writes outside the raster are ignored.
func (r *Raster) Set(x, y int, label uint32) {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return
	}
	r.Pix[y*r.Width+x] = label
}

// Fill writes label into every pixel of rect that lies inside the raster.
func (r *Raster) Fill(rect image.Rectangle, label uint32) {
	rect = rect.Intersect(image.Rect(0, 0, r.Width, r.Height))
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			r.Pix[y*r.Width+x] = label
		}
	}
}

// MaxLabel returns the highest label present.
func (r *Raster) MaxLabel() uint32 {
	var m uint32
	for _, v := range r.Pix {
		m = max(m, v)
	}
	return m
}

// FromImage converts a decoded image into a label raster.
func FromImage(img image.Image) (*Raster, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty label image")
	}
	r := NewRaster(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.Gray16:
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				r.Pix[y*r.Width+x] = uint32(src.Gray16At(x+b.Min.X, y+b.Min.Y).Y)
			}
		}
	case *image.Gray:
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				r.Pix[y*r.Width+x] = uint32(src.GrayAt(x+b.Min.X, y+b.Min.Y).Y)
			}
		}
	case *image.Paletted:
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				r.Pix[y*r.Width+x] = uint32(src.ColorIndexAt(x+b.Min.X, y+b.Min.Y))
			}
		}
	default:
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				cr, cg, cb, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
				r.Pix[y*r.Width+x] = (cr>>8)<<16 | (cg>>8)<<8 | cb>>8
			}
		}
	}
	return r, nil
}

// ToImage converts the raster back to an image. Rasters whose labels fit in
// 16 bits become *image.Gray16; larger labels are packed into RGB channels.
func (r *Raster) ToImage() image.Image {
	rect := image.Rect(0, 0, r.Width, r.Height)
	if m := r.MaxLabel(); m <= 0xFFFF {
		img := image.NewGray16(rect)
		for i, v := range r.Pix {
			g, _ := safecast.Conv[uint16](v)
			img.SetGray16(i%r.Width, i/r.Width, color.Gray16{Y: g})
		}
		return img
	}
	img := image.NewNRGBA(rect)
	for i, v := range r.Pix {
		img.SetNRGBA(i%r.Width, i/r.Width, color.NRGBA{
			R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF,
		})
	}
	return img
}
