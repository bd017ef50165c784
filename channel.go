package labpbr

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrFullyOpaque is returned by ExtractChannel when the alpha channel was
// requested but every pixel is opaque. It signals that there is nothing to
// write; it is not a failure.
var ErrFullyOpaque = errors.New("alpha channel carries no information")

func checkChannel(op string, img *RasterImage, channel int) error {
	if err := img.Validate(); err != nil {
		return err
	}
	if channel < 0 || channel >= img.Channels() {
		return newError(op, "", ErrValidation,
			fmt.Errorf("channel %d out of range for %v image with %d channels", channel, img.Layout, img.Channels()))
	}
	return nil
}

// hasTransparency reports whether any pixel has alpha below the maximum.
func hasTransparency(img *RasterImage) bool {
	a := img.AlphaChannel()
	m := img.MaxValue()
	for y := range img.Height {
		for x := range img.Width {
			if img.Sample(x, y, a) < m {
				return true
			}
		}
	}
	return false
}

// ExtractChannel copies one channel of img into a new grayscale image of the
// same size and bit depth, optionally inverted. Channels are numbered
// R=0, G=1, B=2, A=3 (gray=0, alpha=1 for gray-alpha images). Images with a
// color key expose it as alpha after their color channels.
//
// When the requested channel is the alpha channel and every pixel is opaque,
// no image is produced and ErrFullyOpaque is returned.
func ExtractChannel(img *RasterImage, channel int, invert bool, opt *Options) (*RasterImage, error) {
	start := time.Now()
	if err := checkChannel("extract", img, channel); err != nil {
		return nil, err
	}
	if channel == img.AlphaChannel() && !hasTransparency(img) {
		return nil, ErrFullyOpaque
	}

	o := opt.normalize()
	out := mustRaster(img.Width, img.Height, img.Depth, Grayscale)
	m := img.MaxValue()
	forRows(img.Height, o.Workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := range img.Width {
				v := img.Sample(x, y, channel)
				if invert {
					v = m - v
				}
				out.setRaw(x, y, 0, v)
			}
		}
	})
	traceStage("extract", img.Width, img.Height, start)
	return out, nil
}

// SplitRange describes how SplitChannel partitions the 8-bit value domain.
type SplitRange struct {
	Start int  // Inclusive lower bound of the inside range
	End   int  // Inclusive upper bound of the inside range
	Scale bool // Stretch each partition to the full [0,255] range
}

func (r SplitRange) validate() error {
	if r.Start < 0 || r.End > 255 || r.Start > r.End {
		return newError("split", "", ErrValidation, fmt.Errorf("invalid range [%d,%d]", r.Start, r.End))
	}
	return nil
}

// rescale maps v from [lo,hi] onto [0,255]. A degenerate range maps to 255.
func rescale(v, lo, hi int) int {
	if hi == lo {
		return 255
	}
	f := math.Round(float64(v-lo) * 255 / float64(hi-lo))
	return int(max(0, min(255, f)))
}

// splitValue returns the inside and outside outputs for one 8-bit value.
func (r SplitRange) splitValue(v int) (inside, outside int) {
	switch {
	case v < r.Start:
		if r.Scale {
			return 0, rescale(v, 0, r.Start)
		}
		return 0, v
	case v > r.End:
		if r.Scale {
			return 0, rescale(v, r.End, 255)
		}
		return 0, v
	default:
		if r.Scale {
			return rescale(v, r.Start, r.End), 0
		}
		return v, 0
	}
}

// SplitChannel partitions one channel of img into two complementary 8-bit
// grayscale images: the first holds values inside [Start,End], the second
// values below or above it. For every pixel at most one output is non-zero.
// 16-bit sources are split on their high byte.
//
// This decomposes a legacy specular channel into two PBR maps, e.g. f0/hcm or
// porosity/sss.
func SplitChannel(img *RasterImage, channel int, rng SplitRange, invert bool, opt *Options) (inside, outside *RasterImage, err error) {
	start := time.Now()
	if err := checkChannel("split", img, channel); err != nil {
		return nil, nil, err
	}
	if err := rng.validate(); err != nil {
		return nil, nil, err
	}

	o := opt.normalize()
	inside = mustRaster(img.Width, img.Height, Depth8, Grayscale)
	outside = mustRaster(img.Width, img.Height, Depth8, Grayscale)
	shift := 0
	if img.Depth == Depth16 {
		shift = 8
	}
	forRows(img.Height, o.Workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := range img.Width {
				v := img.Sample(x, y, channel) >> shift
				if invert {
					v = 255 - v
				}
				a, b := rng.splitValue(v)
				i := y*img.Width + x
				inside.Pix[i] = byte(a)
				outside.Pix[i] = byte(b)
			}
		}
	})
	traceStage("split", img.Width, img.Height, start)
	return inside, outside, nil
}

// ToLuma converts img to an 8-bit grayscale image using
// 0.299R + 0.587G + 0.114B. Grayscale images are returned as a copy, reduced
// to 8 bits when needed.
func ToLuma(img *RasterImage, opt *Options) (*RasterImage, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if img.Layout == Grayscale && img.Depth == Depth8 {
		out := img.Clone()
		out.Key = nil
		return out, nil
	}
	o := opt.normalize()
	out := mustRaster(img.Width, img.Height, Depth8, Grayscale)
	shift := 0
	if img.Depth == Depth16 {
		shift = 8
	}
	forRows(img.Height, o.Workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := range img.Width {
				var v int
				if img.Layout == Grayscale || img.Layout == GrayscaleAlpha {
					v = img.Sample(x, y, 0) >> shift
				} else {
					r := img.Sample(x, y, 0) >> shift
					g := img.Sample(x, y, 1) >> shift
					b := img.Sample(x, y, 2) >> shift
					v = (r*299 + g*587 + b*114) / 1000
				}
				out.Pix[y*img.Width+x] = byte(v)
			}
		}
	})
	return out, nil
}

// Invert returns a copy of a grayscale image with every sample inverted.
func Invert(img *RasterImage) (*RasterImage, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if img.Layout != Grayscale {
		return nil, newError("invert", "", ErrValidation, fmt.Errorf("want grayscale image, got %v", img.Layout))
	}
	out := img.Clone()
	for i := range out.Pix {
		out.Pix[i] = ^out.Pix[i]
	}
	for i := range out.Key {
		out.Key[i] = out.MaxValue() - out.Key[i]
	}
	return out, nil
}
