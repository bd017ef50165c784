package labpbr

import (
	"fmt"
	"math"
	"time"
)

// GrayscaleAdjustment is the resolved value/shift/scale transform of one slot.
type GrayscaleAdjustment struct {
	Value float64 // Constant fill in [0,255]; active only when > 0
	Shift float64 // Added in normalized [0,1] space before scaling
	Scale float64 // Multiplier applied after the shift
}

// IdentityAdjustment leaves every pixel unchanged.
func IdentityAdjustment() GrayscaleAdjustment {
	return GrayscaleAdjustment{Scale: 1}
}

// Adjust applies adj to a grayscale image and returns the result.
//
// With Value > 0 the whole image is flooded with clamp(Value, 0, 255).
// Otherwise each pixel p becomes clamp((p/max + Shift) * Scale, 0, 1) * max.
func Adjust(img *RasterImage, adj GrayscaleAdjustment, opt *Options) (*RasterImage, error) {
	start := time.Now()
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if img.Layout != Grayscale {
		return nil, newError("adjust", "", ErrValidation, fmt.Errorf("want grayscale image, got %v", img.Layout))
	}

	o := opt.normalize()
	out := mustRaster(img.Width, img.Height, img.Depth, Grayscale)
	m := float64(img.MaxValue())

	if adj.Value > 0 {
		v := math.Round(max(0, min(255, adj.Value)))
		if img.Depth == Depth16 {
			v *= 257
		}
		fill := int(v)
		forRows(img.Height, o.Workers, func(y0, y1 int) {
			for y := y0; y < y1; y++ {
				for x := range img.Width {
					out.setRaw(x, y, 0, fill)
				}
			}
		})
		traceStage("adjust", img.Width, img.Height, start)
		return out, nil
	}

	forRows(img.Height, o.Workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := range img.Width {
				p := float64(img.raw(x, y, 0)) / m
				v := max(0, min(1, (p+adj.Shift)*adj.Scale))
				out.setRaw(x, y, 0, int(math.Round(v*m)))
			}
		}
	})
	traceStage("adjust", img.Width, img.Height, start)
	return out, nil
}
