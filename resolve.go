package labpbr

import (
	"image/color"
	"os"
	"path/filepath"
	"slices"
)

// PlaceholderSize is the edge length of synthesized placeholder images.
const PlaceholderSize = 16

// Provenance records where a resolved slot image came from.
type Provenance int

const (
	// Original means a file matched the slot's own pattern.
	Original Provenance = iota
	// Alternate means the image was decoded from the partner slot's file and
	// must be inverted.
	Alternate
	// Synthetic means no file was found and a placeholder was generated.
	Synthetic
)

func (p Provenance) String() string {
	switch p {
	case Original:
		return "original"
	case Alternate:
		return "derived-from-alternate"
	default:
		return "synthetic"
	}
}

// Resolution is the result of ResolveSlot.
type Resolution struct {
	Slot       TextureSlot
	Provenance Provenance
	File       string // Base name of the source file, empty for Synthetic
	Image      *RasterImage
}

// Inverted reports whether Image holds the partner slot's values and must be
// inverted (using the partner's adjustment) before it represents Slot.
// Placeholders of slots with an alternate are stored in the partner's terms
// so they go through the same path.
func (r Resolution) Inverted() bool {
	switch r.Provenance {
	case Alternate:
		return true
	case Synthetic:
		return r.Slot.HasAlternate()
	default:
		return false
	}
}

// ConfigSlot returns the slot whose adjustment applies to Image.
func (r Resolution) ConfigSlot() SlotKind {
	if r.Inverted() {
		return r.Slot.Partner
	}
	return r.Slot.Kind
}

// ListCandidates returns the sorted file names of a material directory.
func ListCandidates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, newError("list", dir, ErrIO, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Placeholder returns the uniform image used for a slot without a source.
// With inverted set the fill is the inverse of the slot default.
func Placeholder(slot TextureSlot, inverted bool) *RasterImage {
	c := slot.Default
	if inverted {
		c = color.NRGBA{R: ^c.R, G: ^c.G, B: ^c.B, A: c.A}
	}
	return uniform(PlaceholderSize, PlaceholderSize, slot.Layout, c)
}

// ResolveSlot picks the source of slot among names in dir. In order:
//  1. the first name matching slot.Pattern (Original)
//  2. the first name matching slot.Alternate (Alternate)
//  3. a placeholder filled with slot.Default (Synthetic)
//
// Decode and read failures of a matched file are returned, not skipped.
func ResolveSlot(dir string, names []string, slot TextureSlot) (Resolution, error) {
	if name, ok := firstMatch(names, slot.Match); ok {
		return decodeResolution(dir, name, slot, Original)
	}
	if slot.HasAlternate() {
		if name, ok := firstMatch(names, slot.Alternate.MatchString); ok {
			return decodeResolution(dir, name, slot, Alternate)
		}
	}
	res := Resolution{Slot: slot, Provenance: Synthetic}
	res.Image = Placeholder(slot, res.Inverted())
	return res, nil
}

func firstMatch(names []string, match func(string) bool) (string, bool) {
	for _, n := range names {
		if match(n) {
			return n, true
		}
	}
	return "", false
}

func decodeResolution(dir, name string, slot TextureSlot, p Provenance) (Resolution, error) {
	img, err := DecodeFile(filepath.Join(dir, name))
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Slot: slot, Provenance: p, File: name, Image: img}, nil
}
