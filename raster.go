package labpbr

import (
	"fmt"
	"image"
	"image/color"
)

// BitDepth is the number of bits per sample.
type BitDepth uint8

const (
	Depth8  BitDepth = 8
	Depth16 BitDepth = 16
)

// Layout is the color layout of a RasterImage.
type Layout uint8

const (
	Grayscale Layout = iota
	GrayscaleAlpha
	RGB
	RGBA
	Indexed
)

func (l Layout) String() string {
	switch l {
	case Grayscale:
		return "grayscale"
	case GrayscaleAlpha:
		return "grayscale-alpha"
	case RGB:
		return "rgb"
	case RGBA:
		return "rgba"
	case Indexed:
		return "indexed"
	default:
		return fmt.Sprintf("layout(%d)", uint8(l))
	}
}

// samples is the number of stored samples per pixel.
func (l Layout) samples() int {
	switch l {
	case GrayscaleAlpha:
		return 2
	case RGB:
		return 3
	case RGBA:
		return 4
	default:
		return 1
	}
}

// Channels is the number of addressable channels. Indexed pixels expand
// through the palette to R, G, B, A.
func (l Layout) Channels() int {
	if l == Indexed {
		return 4
	}
	return l.samples()
}

// AlphaChannel returns the channel index of alpha, or -1.
func (l Layout) AlphaChannel() int {
	switch l {
	case GrayscaleAlpha:
		return 1
	case RGBA, Indexed:
		return 3
	default:
		return -1
	}
}

// RasterImage is an owned pixel buffer. Samples are interleaved row by row;
// 16-bit samples are stored big-endian, as in PNG.
type RasterImage struct {
	Width   int
	Height  int
	Depth   BitDepth
	Layout  Layout
	Palette []color.NRGBA // Only for Indexed
	Key     []int         // Transparent color of Grayscale and RGB images, one value per sample; nil if none
	Pix     []byte
}

// NewRasterImage allocates a zeroed image.
func NewRasterImage(width, height int, depth BitDepth, layout Layout) (*RasterImage, error) {
	if width <= 0 || height <= 0 {
		return nil, newError("new image", "", ErrValidation, fmt.Errorf("invalid size %dx%d", width, height))
	}
	if depth != Depth8 && depth != Depth16 {
		return nil, newError("new image", "", ErrValidation, fmt.Errorf("unsupported bit depth %d", depth))
	}
	if layout > Indexed {
		return nil, newError("new image", "", ErrValidation, fmt.Errorf("unsupported layout %v", layout))
	}
	if layout == Indexed && depth != Depth8 {
		return nil, newError("new image", "", ErrValidation, fmt.Errorf("indexed images must be 8-bit"))
	}
	r := &RasterImage{Width: width, Height: height, Depth: depth, Layout: layout}
	r.Pix = make([]byte, width*height*r.BytesPerPixel())
	return r, nil
}

func mustRaster(width, height int, depth BitDepth, layout Layout) *RasterImage {
	r, err := NewRasterImage(width, height, depth, layout)
	if err != nil {
		panic(err)
	}
	return r
}

// BytesPerPixel returns the stored size of one pixel.
func (r *RasterImage) BytesPerPixel() int {
	return r.Layout.samples() * int(r.Depth) / 8
}

// Stride returns the number of bytes per row.
func (r *RasterImage) Stride() int {
	return r.Width * r.BytesPerPixel()
}

// MaxValue returns the largest sample value (255 or 65535).
func (r *RasterImage) MaxValue() int {
	if r.Depth == Depth16 {
		return 0xffff
	}
	return 0xff
}

// Channels returns the number of addressable channels. Keyed images have
// an extra alpha channel after their color channels.
func (r *RasterImage) Channels() int {
	if r.keyed() {
		return r.Layout.samples() + 1
	}
	return r.Layout.Channels()
}

// AlphaChannel returns the channel index of alpha, or -1.
func (r *RasterImage) AlphaChannel() int {
	if r.keyed() {
		return r.Layout.samples()
	}
	return r.Layout.AlphaChannel()
}

func (r *RasterImage) keyed() bool {
	return r.Key != nil && (r.Layout == Grayscale || r.Layout == RGB)
}

// transparentAt reports whether pixel (x,y) equals the color key.
func (r *RasterImage) transparentAt(x, y int) bool {
	for i, k := range r.Key {
		if r.raw(x, y, i) != k {
			return false
		}
	}
	return true
}

// Validate checks the buffer invariant.
func (r *RasterImage) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return newError("validate", "", ErrValidation, fmt.Errorf("invalid size %dx%d", r.Width, r.Height))
	}
	if r.Depth != Depth8 && r.Depth != Depth16 {
		return newError("validate", "", ErrValidation, fmt.Errorf("unsupported bit depth %d", r.Depth))
	}
	if want := r.Width * r.Height * r.BytesPerPixel(); len(r.Pix) != want {
		return newError("validate", "", ErrValidation, fmt.Errorf("buffer has %d bytes, want %d", len(r.Pix), want))
	}
	if r.Layout == Indexed && len(r.Palette) == 0 {
		return newError("validate", "", ErrValidation, fmt.Errorf("indexed image without palette"))
	}
	if r.Key != nil {
		if r.Layout != Grayscale && r.Layout != RGB {
			return newError("validate", "", ErrValidation, fmt.Errorf("color key on %v image", r.Layout))
		}
		if len(r.Key) != r.Layout.samples() {
			return newError("validate", "", ErrValidation, fmt.Errorf("color key has %d samples, want %d", len(r.Key), r.Layout.samples()))
		}
		for _, k := range r.Key {
			if k < 0 || k > r.MaxValue() {
				return newError("validate", "", ErrValidation, fmt.Errorf("color key sample %d out of range", k))
			}
		}
	}
	return nil
}

func (r *RasterImage) offset(x, y int) int {
	return (y*r.Width + x) * r.BytesPerPixel()
}

// raw returns stored sample i of pixel (x,y) in native depth.
func (r *RasterImage) raw(x, y, i int) int {
	if r.Depth == Depth16 {
		o := r.offset(x, y) + i*2
		return int(r.Pix[o])<<8 | int(r.Pix[o+1])
	}
	return int(r.Pix[r.offset(x, y)+i])
}

func (r *RasterImage) setRaw(x, y, i, v int) {
	if r.Depth == Depth16 {
		o := r.offset(x, y) + i*2
		r.Pix[o] = byte(v >> 8)
		r.Pix[o+1] = byte(v)
		return
	}
	r.Pix[r.offset(x, y)+i] = byte(v)
}

// paletteAt returns the palette entry for an index, opaque black when out of range.
func (r *RasterImage) paletteAt(idx int) color.NRGBA {
	if idx < len(r.Palette) {
		return r.Palette[idx]
	}
	return color.NRGBA{A: 0xff}
}

// Sample returns channel c of pixel (x,y) in native depth. The caller
// guarantees c < Channels().
func (r *RasterImage) Sample(x, y, c int) int {
	if r.keyed() && c == r.Layout.samples() {
		if r.transparentAt(x, y) {
			return 0
		}
		return r.MaxValue()
	}
	if r.Layout != Indexed {
		return r.raw(x, y, c)
	}
	p := r.paletteAt(r.raw(x, y, 0))
	switch c {
	case 0:
		return int(p.R)
	case 1:
		return int(p.G)
	case 2:
		return int(p.B)
	default:
		return int(p.A)
	}
}

// luma returns the Rec.709 luminance of (x,y) normalized to [0,1].
func (r *RasterImage) luma(x, y int) float64 {
	m := float64(r.MaxValue())
	switch r.Layout {
	case Grayscale, GrayscaleAlpha:
		return float64(r.raw(x, y, 0)) / m
	default:
		rr := float64(r.Sample(x, y, 0))
		gg := float64(r.Sample(x, y, 1))
		bb := float64(r.Sample(x, y, 2))
		return (0.2126*rr + 0.7152*gg + 0.0722*bb) / m
	}
}

// Clone returns a deep copy.
func (r *RasterImage) Clone() *RasterImage {
	out := *r
	out.Pix = append([]byte(nil), r.Pix...)
	if r.Palette != nil {
		out.Palette = append([]color.NRGBA(nil), r.Palette...)
	}
	if r.Key != nil {
		out.Key = append([]int(nil), r.Key...)
	}
	return &out
}

// Image converts the buffer into a standard library image.
func (r *RasterImage) Image() image.Image {
	rect := image.Rect(0, 0, r.Width, r.Height)
	switch {
	case r.Layout == Grayscale && r.Depth == Depth8 && !r.keyed():
		return &image.Gray{Pix: append([]byte(nil), r.Pix...), Stride: r.Width, Rect: rect}
	case r.Layout == Grayscale && !r.keyed():
		return &image.Gray16{Pix: append([]byte(nil), r.Pix...), Stride: r.Width * 2, Rect: rect}
	case r.Layout == Indexed:
		pal := make(color.Palette, len(r.Palette))
		for i, c := range r.Palette {
			pal[i] = c
		}
		return &image.Paletted{Pix: append([]byte(nil), r.Pix...), Stride: r.Width, Rect: rect, Palette: pal}
	case r.Depth == Depth8:
		out := image.NewNRGBA(rect)
		for y := range r.Height {
			for x := range r.Width {
				out.SetNRGBA(x, y, r.nrgba(x, y))
			}
		}
		return out
	default:
		out := image.NewNRGBA64(rect)
		for y := range r.Height {
			for x := range r.Width {
				out.SetNRGBA64(x, y, r.nrgba64(x, y))
			}
		}
		return out
	}
}

func (r *RasterImage) nrgba(x, y int) color.NRGBA {
	var c color.NRGBA
	switch r.Layout {
	case Grayscale:
		v := uint8(r.raw(x, y, 0))
		c = color.NRGBA{v, v, v, 0xff}
	case GrayscaleAlpha:
		v := uint8(r.raw(x, y, 0))
		c = color.NRGBA{v, v, v, uint8(r.raw(x, y, 1))}
	case RGB:
		c = color.NRGBA{uint8(r.raw(x, y, 0)), uint8(r.raw(x, y, 1)), uint8(r.raw(x, y, 2)), 0xff}
	case Indexed:
		c = r.paletteAt(r.raw(x, y, 0))
	default:
		c = color.NRGBA{uint8(r.raw(x, y, 0)), uint8(r.raw(x, y, 1)), uint8(r.raw(x, y, 2)), uint8(r.raw(x, y, 3))}
	}
	if r.keyed() && r.transparentAt(x, y) {
		c.A = 0
	}
	return c
}

func (r *RasterImage) nrgba64(x, y int) color.NRGBA64 {
	s := func(i int) uint16 { return uint16(r.raw(x, y, i)) }
	var c color.NRGBA64
	switch r.Layout {
	case Grayscale:
		c = color.NRGBA64{s(0), s(0), s(0), 0xffff}
	case GrayscaleAlpha:
		c = color.NRGBA64{s(0), s(0), s(0), s(1)}
	case RGB:
		c = color.NRGBA64{s(0), s(1), s(2), 0xffff}
	default:
		c = color.NRGBA64{s(0), s(1), s(2), s(3)}
	}
	if r.keyed() && r.transparentAt(x, y) {
		c.A = 0
	}
	return c
}

// FromImage copies a standard library image into a RasterImage, picking the
// closest layout for its concrete type.
func FromImage(img image.Image) *RasterImage {
	switch src := img.(type) {
	case *image.Gray:
		return convertImage(img, Grayscale, Depth8)
	case *image.Gray16:
		return convertImage(img, Grayscale, Depth16)
	case *image.Paletted:
		return convertImage(src, Indexed, Depth8)
	case *image.NRGBA64, *image.RGBA64:
		return convertImage(img, RGBA, Depth16)
	default:
		return convertImage(img, RGBA, Depth8)
	}
}

// convertImage copies img into the requested layout and depth.
func convertImage(img image.Image, layout Layout, depth BitDepth) *RasterImage {
	b := img.Bounds()
	out := mustRaster(b.Dx(), b.Dy(), depth, layout)

	if p, ok := img.(*image.Paletted); ok && layout == Indexed {
		out.Palette = make([]color.NRGBA, len(p.Palette))
		for i, c := range p.Palette {
			out.Palette[i] = color.NRGBAModel.Convert(c).(color.NRGBA)
		}
		for y := range out.Height {
			copy(out.Pix[y*out.Width:(y+1)*out.Width], p.Pix[p.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return out
	}
	if layout == Indexed {
		// Only paletted sources stay indexed.
		return convertImage(img, RGBA, Depth8)
	}

	for y := range out.Height {
		for x := range out.Width {
			c := nrgba64At(img, b.Min.X+x, b.Min.Y+y)
			vals := [4]uint16{c.R, c.G, c.B, c.A}
			switch layout {
			case Grayscale:
				vals[0] = grayOf(c)
			case GrayscaleAlpha:
				vals[0], vals[1] = grayOf(c), c.A
			}
			for i := range layout.samples() {
				v := int(vals[i])
				if depth == Depth8 {
					v >>= 8
				}
				out.setRaw(x, y, i, v)
			}
		}
	}
	return out
}

// nrgba64At returns the non-premultiplied color at (x,y). NRGBA sources are
// widened directly so translucent samples keep their exact values.
func nrgba64At(img image.Image, x, y int) color.NRGBA64 {
	switch src := img.(type) {
	case *image.NRGBA:
		c := src.NRGBAAt(x, y)
		return color.NRGBA64{R: uint16(c.R) * 0x101, G: uint16(c.G) * 0x101, B: uint16(c.B) * 0x101, A: uint16(c.A) * 0x101}
	case *image.NRGBA64:
		return src.NRGBA64At(x, y)
	}
	return color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
}

// grayOf returns the gray level of c. Equal channels pass through
// unchanged so gray sources round-trip exactly.
func grayOf(c color.NRGBA64) uint16 {
	if c.R == c.G && c.G == c.B {
		return c.R
	}
	return uint16((299*uint32(c.R) + 587*uint32(c.G) + 114*uint32(c.B)) / 1000)
}

// uniform returns an 8-bit image filled with c.
func uniform(width, height int, layout Layout, c color.NRGBA) *RasterImage {
	out := mustRaster(width, height, Depth8, layout)
	var px []byte
	switch layout {
	case Grayscale:
		px = []byte{c.R}
	case GrayscaleAlpha:
		px = []byte{c.R, c.A}
	case RGB:
		px = []byte{c.R, c.G, c.B}
	case Indexed:
		out.Palette = []color.NRGBA{c}
		px = []byte{0}
	default:
		px = []byte{c.R, c.G, c.B, c.A}
	}
	for i := 0; i < len(out.Pix); i += len(px) {
		copy(out.Pix[i:], px)
	}
	return out
}
