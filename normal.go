package labpbr

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultStrength is the strength used when a configuration has none.
const DefaultStrength = 1.0

// NormalConfig controls normal synthesis and curvature of one material.
type NormalConfig struct {
	CurveX     float64 // Curvature about the X axis, degrees
	CurveY     float64 // Curvature about the Y axis, degrees
	RadiusX    float64 // Curvature radius for CurveX; 0 disables the divisor
	RadiusY    float64 // Curvature radius for CurveY; 0 disables the divisor
	NoiseAngle float64 // Reserved
	Method     Method  // Gradient kernel
	Strength   float64 // Z scale is 1/Strength; must be > 0
}

// DefaultNormalConfig returns the configuration used for materials without
// a normal section.
func DefaultNormalConfig() NormalConfig {
	return NormalConfig{
		RadiusX:  0.5,
		RadiusY:  0.5,
		Method:   MethodSobel3,
		Strength: DefaultStrength,
	}
}

// encodeUnit maps a component in [-1,1] to [0,255].
func encodeUnit(v float64) byte {
	return byte(max(0, min(255, math.Round((v*0.5+0.5)*255))))
}

// decodeUnit maps a stored component in [0,255] back to [-1,1].
func decodeUnit(c byte) float64 {
	return float64(c)/255*2 - 1
}

// heightField is a single-channel float buffer.
type heightField struct {
	w, h int
	v    []float64
}

func lumaField(img *RasterImage, workers int) heightField {
	f := heightField{w: img.Width, h: img.Height, v: make([]float64, img.Width*img.Height)}
	forRows(img.Height, workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := range img.Width {
				f.v[y*img.Width+x] = img.luma(x, y)
			}
		}
	})
	return f
}

// tile3 returns a 3x3 wrapped copy of f.
func (f heightField) tile3(workers int) heightField {
	t := heightField{w: f.w * 3, h: f.h * 3}
	t.v = make([]float64, t.w*t.h)
	forRows(t.h, workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := f.v[(y%f.h)*f.w : (y%f.h+1)*f.w]
			dst := t.v[y*t.w : (y+1)*t.w]
			for i := range 3 {
				copy(dst[i*f.w:], row)
			}
		}
	})
	return t
}

// window fills win with the (2r+1) x (2r+1) neighborhood of (cx,cy).
// Coordinates outside f are clamped to its border.
func (f heightField) window(cx, cy, r int, win []float64) {
	size := 2*r + 1
	for dy := range size {
		py := clampInt(cy+dy-r, 0, f.h-1)
		for dx := range size {
			px := clampInt(cx+dx-r, 0, f.w-1)
			win[dy*size+dx] = f.v[py*f.w+px]
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SynthesizeNormal derives an 8-bit RGB tangent-space normal map from the
// luminance of src.
//
// The source is tiled 3x3 before convolution and only the center tile is
// kept, so gradients at the borders are those of a toroidally wrapped
// texture. Only center-tile pixels are evaluated; their neighborhoods are
// read from the full tiled buffer.
func SynthesizeNormal(src *RasterImage, method Method, strength float64, opt *Options) (*RasterImage, error) {
	start := time.Now()
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if !(strength > 0) || math.IsInf(strength, 0) {
		Logger().Warn("invalid normal strength, using default", "strength", strength)
		strength = DefaultStrength
	}
	k := KernelFor(method)
	o := opt.normalize()

	w, h := src.Width, src.Height
	tiled := lumaField(src, o.Workers).tile3(o.Workers)
	gz := 1 / strength

	out := mustRaster(w, h, Depth8, RGB)
	forRows(h, o.Workers, func(y0, y1 int) {
		win := make([]float64, k.Size*k.Size)
		for y := y0; y < y1; y++ {
			for x := range w {
				tiled.window(w+x, h+y, k.Radius(), win)
				gx := floats.Dot(win, k.X)
				gy := -floats.Dot(win, k.Y)
				n := r3.Unit(r3.Vec{X: gx, Y: gy, Z: gz})
				p := (y*w + x) * 3
				out.Pix[p] = encodeUnit(n.X)
				out.Pix[p+1] = encodeUnit(n.Y)
				out.Pix[p+2] = encodeUnit(n.Z)
			}
		}
	})
	traceStage("normal", w, h, start)
	return out, nil
}

// curveAngle returns the rotation angle in radians for position t in [0,1).
func curveAngle(deg, t, radius float64) float64 {
	if radius == 0 {
		radius = 1
	}
	return deg * math.Pi / 180 * (t - 0.5) / radius
}

// ApplyCurvature rotates every normal of an 8-bit RGB or RGBA normal map as
// if it were mapped onto a curved surface: about the X axis by an angle that
// varies with the row, then about the Y axis by an angle that varies with the
// column. Alpha is kept. With CurveX and CurveY both zero the image is
// returned unchanged.
func ApplyCurvature(img *RasterImage, cfg NormalConfig, opt *Options) (*RasterImage, error) {
	start := time.Now()
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if img.Depth != Depth8 || (img.Layout != RGB && img.Layout != RGBA) {
		return nil, newError("curvature", "", ErrValidation,
			fmt.Errorf("want 8-bit rgb or rgba normal map, got %d-bit %v", img.Depth, img.Layout))
	}
	if cfg.CurveX == 0 && cfg.CurveY == 0 {
		return img.Clone(), nil
	}

	o := opt.normalize()
	w, h := img.Width, img.Height
	rowRot := make([]r3.Rotation, h)
	for y := range h {
		rowRot[y] = r3.NewRotation(curveAngle(cfg.CurveX, float64(y)/float64(h), cfg.RadiusX), r3.Vec{X: 1})
	}
	colRot := make([]r3.Rotation, w)
	for x := range w {
		colRot[x] = r3.NewRotation(curveAngle(cfg.CurveY, float64(x)/float64(w), cfg.RadiusY), r3.Vec{Y: 1})
	}

	out := img.Clone()
	bpp := img.BytesPerPixel()
	forRows(h, o.Workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := range w {
				i := (y*w + x) * bpp
				v := r3.Vec{X: decodeUnit(img.Pix[i]), Y: decodeUnit(img.Pix[i+1]), Z: decodeUnit(img.Pix[i+2])}
				v = colRot[x].Rotate(rowRot[y].Rotate(v))
				if r3.Norm(v) == 0 {
					continue
				}
				v = r3.Unit(v)
				out.Pix[i] = encodeUnit(v.X)
				out.Pix[i+1] = encodeUnit(v.Y)
				out.Pix[i+2] = encodeUnit(v.Z)
			}
		}
	})
	traceStage("curvature", w, h, start)
	return out, nil
}

// GenerateNormal synthesizes a normal map from a height map and applies the
// configured curvature.
func GenerateNormal(height *RasterImage, cfg NormalConfig, opt *Options) (*RasterImage, error) {
	n, err := SynthesizeNormal(height, cfg.Method, cfg.Strength, opt)
	if err != nil {
		return nil, err
	}
	return ApplyCurvature(n, cfg, opt)
}
