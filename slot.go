package labpbr

import (
	"fmt"
	"image/color"
	"regexp"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// SlotKind identifies one logical texture of a material.
type SlotKind int

const (
	SlotColor SlotKind = iota
	SlotOpacity
	SlotHeight
	SlotNormal
	SlotOcclusion
	SlotSmooth
	SlotRough
	SlotMetal
	SlotHCM
	SlotF0
	SlotPorosity
	SlotSSS
	SlotEmissive
	slotCount
)

var slotNames = [slotCount]string{
	SlotColor:     "color",
	SlotOpacity:   "opacity",
	SlotHeight:    "height",
	SlotNormal:    "normal",
	SlotOcclusion: "occlusion",
	SlotSmooth:    "smooth",
	SlotRough:     "rough",
	SlotMetal:     "metal",
	SlotHCM:       "hcm",
	SlotF0:        "f0",
	SlotPorosity:  "porosity",
	SlotSSS:       "sss",
	SlotEmissive:  "emissive",
}

// Valid reports whether k names a slot of the catalog.
func (k SlotKind) Valid() bool {
	return k >= 0 && k < slotCount
}

func (k SlotKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("slot(%d)", int(k))
	}
	return slotNames[k]
}

// Slot returns the catalog entry for k. k must be valid.
func (k SlotKind) Slot() TextureSlot {
	return catalog[k]
}

// ParseSlotKind looks up a slot by name, ignoring case.
func ParseSlotKind(name string) (SlotKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range slotNames {
		if n == name {
			return SlotKind(k), nil
		}
	}
	return 0, newError("slot", "", ErrValidation, fmt.Errorf("unknown texture slot %q", name))
}

// TextureSlot describes how one slot is found in a material directory and
// what it looks like when no file exists.
type TextureSlot struct {
	Kind       SlotKind
	Name       string
	Pattern    *regexp.Regexp // Primary file name match
	Alternate  *regexp.Regexp // Inverse-derived source, nil when there is none
	Partner    SlotKind       // Slot matched by Alternate; meaningful only when Alternate != nil
	Grayscale  bool           // Single-channel PBR map
	Adjustable bool           // Has a GrayscaleAdjustment in the material config
	Default    color.NRGBA    // Placeholder fill
	Layout     Layout         // Placeholder layout
}

// HasAlternate reports whether the slot can be derived from a partner file.
func (s TextureSlot) HasAlternate() bool {
	return s.Alternate != nil
}

// Match reports whether a file name matches the primary pattern.
func (s TextureSlot) Match(name string) bool {
	return s.Pattern.MatchString(name)
}

func filePattern(words string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^.*` + words + `.*\.png$`)
}

func hexColor(s string) color.NRGBA {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}

var catalog = buildCatalog()

func buildCatalog() [slotCount]TextureSlot {
	gray := func(k SlotKind, words, fill string, adjustable bool) TextureSlot {
		return TextureSlot{
			Kind:       k,
			Name:       k.String(),
			Pattern:    filePattern(words),
			Grayscale:  true,
			Adjustable: adjustable,
			Default:    hexColor(fill),
			Layout:     Grayscale,
		}
	}

	var c [slotCount]TextureSlot
	c[SlotColor] = TextureSlot{
		Kind:    SlotColor,
		Name:    SlotColor.String(),
		Pattern: filePattern(`(albedo|color)`),
		Default: hexColor("#808080"),
		Layout:  RGB,
	}
	c[SlotNormal] = TextureSlot{
		Kind:    SlotNormal,
		Name:    SlotNormal.String(),
		Pattern: filePattern(`normal`),
		Default: hexColor("#8080ff"),
		Layout:  RGB,
	}
	c[SlotOpacity] = gray(SlotOpacity, `opacity`, "#ffffff", true)
	c[SlotHeight] = gray(SlotHeight, `height`, "#ffffff", false)
	c[SlotOcclusion] = gray(SlotOcclusion, `(occlusion|ao)`, "#ffffff", false)
	c[SlotSmooth] = gray(SlotSmooth, `smooth`, "#000000", true)
	c[SlotRough] = gray(SlotRough, `rough`, "#ffffff", true)
	c[SlotMetal] = gray(SlotMetal, `metal`, "#000000", true)
	c[SlotHCM] = gray(SlotHCM, `hcm`, "#000000", false)
	c[SlotF0] = gray(SlotF0, `f0`, "#000000", true)
	c[SlotPorosity] = gray(SlotPorosity, `porosity`, "#000000", true)
	c[SlotSSS] = gray(SlotSSS, `sss`, "#000000", true)
	c[SlotEmissive] = gray(SlotEmissive, `emissive`, "#000000", true)

	// Smoothness and roughness are reciprocal.
	c[SlotSmooth].Alternate, c[SlotSmooth].Partner = c[SlotRough].Pattern, SlotRough
	c[SlotRough].Alternate, c[SlotRough].Partner = c[SlotSmooth].Pattern, SlotSmooth
	return c
}

// Slots returns the full catalog in declaration order.
func Slots() []TextureSlot {
	return append([]TextureSlot(nil), catalog[:]...)
}
