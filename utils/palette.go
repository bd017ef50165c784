package utils

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"slices"

	svg "github.com/ajstarks/svgo"
	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/setanarut/labpbr"
)

type PaletteMethod int

const (
	PaletteMethodDominantColor PaletteMethod = iota
	PaletteMethodKMeans
)

func (m PaletteMethod) String() string {
	switch m {
	case PaletteMethodKMeans:
		return "kmeans"
	default:
		return "dominantcolor"
	}
}

// Swatch is a palette color with its share of the sampled pixels.
type Swatch struct {
	Color  colorful.Color
	Weight float64
}

// SortPaletteByBrightness orders colors from darkest to brightest by
// linear-light luminance.
func SortPaletteByBrightness(palette []colorful.Color) {
	lum := func(c colorful.Color) float64 {
		r, g, b := c.LinearRgb()
		return 0.2126*r + 0.7152*g + 0.0722*b
	}
	slices.SortFunc(palette, func(a, b colorful.Color) int {
		la, lb := lum(a), lum(b)
		switch {
		case la < lb:
			return -1
		case la > lb:
			return 1
		}
		return 0
	})
}

func dominantSwatches(img image.Image, n int) []Swatch {
	found := dominantcolor.FindWeight(img, n)
	if len(found) == 0 {
		found = []dominantcolor.Color{{RGBA: color.RGBA{R: 128, G: 128, B: 128, A: 255}, Weight: 1}}
	}
	out := make([]Swatch, 0, len(found))
	for _, c := range found {
		col, _ := colorful.MakeColor(c.RGBA)
		out = append(out, Swatch{Color: col.Clamped(), Weight: c.Weight})
	}
	return out
}

// maxKMeansSamples bounds the observations handed to k-means.
const maxKMeansSamples = 12000

func kmeansSwatches(img image.Image, n int) []Swatch {
	b := img.Bounds()
	if b.Empty() {
		return nil
	}
	step := 1
	if area := b.Dx() * b.Dy(); area > maxKMeansSamples {
		step = int(math.Sqrt(float64(area)/maxKMeansSamples)) + 1
	}

	var obs clusters.Observations
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
			if c.A == 0 {
				continue
			}
			obs = append(obs, clusters.Coordinates{
				float64(c.R) / 0xffff,
				float64(c.G) / 0xffff,
				float64(c.B) / 0xffff,
			})
		}
	}
	if len(obs) == 0 {
		return nil
	}

	cc, err := kmeans.New().Partition(obs, min(n, len(obs)))
	if err != nil {
		labpbr.Logger().Warn("kmeans partition failed", "err", err)
		return nil
	}
	out := make([]Swatch, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 || len(c.Observations) == 0 {
			continue
		}
		col := colorful.Color{R: c.Center[0], G: c.Center[1], B: c.Center[2]}.Clamped()
		out = append(out, Swatch{Color: col, Weight: float64(len(c.Observations))})
	}
	return out
}

// diverse picks k swatches: the heaviest first, then repeatedly the one
// farthest in Lab space from those already picked, favoring heavy swatches.
func diverse(cands []Swatch, k int) []colorful.Color {
	if k <= 0 || len(cands) == 0 {
		return nil
	}
	k = min(k, len(cands))
	heaviest := 0.0
	for _, c := range cands {
		heaviest = max(heaviest, c.Weight)
	}
	if heaviest <= 0 {
		heaviest = 1
	}

	picked := make([]int, 0, k)
	used := make([]bool, len(cands))
	first := 0
	for i, c := range cands {
		if c.Weight > cands[first].Weight {
			first = i
		}
	}
	picked = append(picked, first)
	used[first] = true

	for len(picked) < k {
		best, bestScore := -1, -1.0
		for i, c := range cands {
			if used[i] {
				continue
			}
			nearest := math.MaxFloat64
			for _, p := range picked {
				nearest = min(nearest, c.Color.DistanceLab(cands[p].Color))
			}
			w := max(c.Weight, 1e-6) / heaviest
			score := nearest * (0.55 + 0.45*math.Sqrt(w))
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}
		used[best] = true
		picked = append(picked, best)
	}

	out := make([]colorful.Color, len(picked))
	for i, p := range picked {
		out[i] = cands[p].Color
	}
	return out
}

// ExtractPalette returns up to k representative colors of img. K-means falls
// back to dominant colors when it finds nothing.
func ExtractPalette(img image.Image, k int, method PaletteMethod) []colorful.Color {
	if k <= 0 {
		return nil
	}
	if method == PaletteMethodKMeans {
		if p := diverse(kmeansSwatches(img, max(k*4, k+2)), k); len(p) != 0 {
			return p
		}
		labpbr.Logger().Warn("kmeans returned empty palette, falling back to dominantcolor")
	}
	return diverse(dominantSwatches(img, max(24, k*8)), k)
}

// MaterialPalette extracts a brightness-sorted palette from the color slot
// of a material.
func MaterialPalette(m *labpbr.Material, k int, method PaletteMethod) ([]colorful.Color, error) {
	res, err := m.Resolve(labpbr.SlotColor)
	if err != nil {
		return nil, err
	}
	if res.Provenance == labpbr.Synthetic {
		return nil, fmt.Errorf("material %s has no color texture", m.Dir)
	}
	p := ExtractPalette(res.Image.Image(), k, method)
	SortPaletteByBrightness(p)
	return p, nil
}

// PaletteImage renders the palette as a strip of square tiles.
func PaletteImage(palette []colorful.Color, tileSize int) (*image.NRGBA, error) {
	if len(palette) == 0 {
		return nil, fmt.Errorf("empty palette")
	}
	if tileSize <= 0 {
		tileSize = 64
	}
	img := image.NewNRGBA(image.Rect(0, 0, tileSize*len(palette), tileSize))
	for i, c := range palette {
		r, g, b := c.Clamped().RGB255()
		fill := color.NRGBA{R: r, G: g, B: b, A: 255}
		for y := range tileSize {
			for x := i * tileSize; x < (i+1)*tileSize; x++ {
				img.SetNRGBA(x, y, fill)
			}
		}
	}
	return img, nil
}

// SavePalette writes the palette strip to filename as PNG.
func SavePalette(palette []colorful.Color, tileSize int, filename string) error {
	img, err := PaletteImage(palette, tileSize)
	if err != nil {
		return err
	}
	return SaveImage(img, filename)
}

// WritePaletteSVG writes the palette strip as SVG rectangles.
func WritePaletteSVG(w io.Writer, palette []colorful.Color, tileSize int) error {
	if len(palette) == 0 {
		return fmt.Errorf("empty palette")
	}
	if tileSize <= 0 {
		tileSize = 64
	}
	canvas := svg.New(w)
	canvas.Start(tileSize*len(palette), tileSize)
	for i, c := range palette {
		canvas.Rect(i*tileSize, 0, tileSize, tileSize, "fill:"+c.Clamped().Hex())
	}
	canvas.End()
	return nil
}

// SavePaletteSVG writes the palette strip to filename as SVG.
func SavePaletteSVG(palette []colorful.Color, tileSize int, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WritePaletteSVG(f, palette, tileSize); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
