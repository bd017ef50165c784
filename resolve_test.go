package labpbr

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writePNG(t *testing.T, path string, img *RasterImage) {
	t.Helper()
	if err := EncodeFile(path, img); err != nil {
		t.Fatalf("EncodeFile %s: %v", path, err)
	}
}

func TestParseSlotKind(t *testing.T) {
	for _, s := range Slots() {
		k, err := ParseSlotKind(" " + s.Name + " ")
		if err != nil || k != s.Kind {
			t.Errorf("ParseSlotKind(%q) = %v, %v", s.Name, k, err)
		}
	}
	if k, err := ParseSlotKind("ROUGH"); err != nil || k != SlotRough {
		t.Errorf("ParseSlotKind(ROUGH) = %v, %v", k, err)
	}
	if _, err := ParseSlotKind("gloss"); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown slot: err = %v, want ErrValidation", err)
	}
}

func TestSlotCatalog(t *testing.T) {
	slots := Slots()
	if len(slots) != int(slotCount) {
		t.Fatalf("len(Slots()) = %d, want %d", len(slots), slotCount)
	}
	for i, s := range slots {
		if s.Kind != SlotKind(i) || s.Name != SlotKind(i).String() {
			t.Errorf("slot %d = %v/%q", i, s.Kind, s.Name)
		}
		if s.Pattern == nil {
			t.Errorf("%s: no pattern", s.Name)
		}
	}
	if p := SlotSmooth.Slot(); !p.HasAlternate() || p.Partner != SlotRough {
		t.Errorf("smooth partner = %v/%v", p.HasAlternate(), p.Partner)
	}
	if p := SlotRough.Slot(); !p.HasAlternate() || p.Partner != SlotSmooth {
		t.Errorf("rough partner = %v/%v", p.HasAlternate(), p.Partner)
	}
	if SlotMetal.Slot().HasAlternate() {
		t.Error("metal has an alternate")
	}
	if got := SlotNormal.Slot().Default; got != (color.NRGBA{R: 128, G: 128, B: 255, A: 255}) {
		t.Errorf("normal default = %v", got)
	}
}

func TestSlotMatch(t *testing.T) {
	tests := []struct {
		slot SlotKind
		name string
		want bool
	}{
		{SlotColor, "color.png", true},
		{SlotColor, "Stone_Albedo.PNG", true},
		{SlotColor, "color.jpg", false},
		{SlotNormal, "normal.png", true},
		{SlotOcclusion, "ao.png", true},
		{SlotOcclusion, "ambient_occlusion.png", true},
		{SlotRough, "Roughness.png", true},
		{SlotSmooth, "rough.png", false},
		{SlotF0, "f0.png", true},
	}
	for _, tt := range tests {
		if got := tt.slot.Slot().Match(tt.name); got != tt.want {
			t.Errorf("%v.Match(%q) = %v, want %v", tt.slot, tt.name, got, tt.want)
		}
	}
}

func TestListCandidates(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.png", "mat.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "color.png"), 0o755); err != nil {
		t.Fatal(err)
	}
	got, err := ListCandidates(dir)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a.png", "b.png", "mat.yml"}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if _, err := ListCandidates(filepath.Join(dir, "missing")); !errors.Is(err, ErrIO) {
		t.Errorf("missing dir: err = %v, want ErrIO", err)
	}
}

func TestResolveSlotOriginal(t *testing.T) {
	dir := t.TempDir()
	img := gray8(2, 2, 1, 2, 3, 4)
	writePNG(t, filepath.Join(dir, "Stone_Rough.png"), img)

	res, err := ResolveSlot(dir, []string{"Stone_Rough.png"}, SlotRough.Slot())
	if err != nil {
		t.Fatal(err)
	}
	if res.Provenance != Original || res.File != "Stone_Rough.png" || res.Inverted() {
		t.Errorf("got %v %q inverted=%v", res.Provenance, res.File, res.Inverted())
	}
	if res.ConfigSlot() != SlotRough {
		t.Errorf("ConfigSlot = %v, want rough", res.ConfigSlot())
	}
	if diff := cmp.Diff(img, res.Image); diff != "" {
		t.Errorf("image (-want +got):\n%s", diff)
	}
}

func TestResolveSlotPrefersOriginalOverAlternate(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "rough.png"), gray8(1, 1, 10))
	writePNG(t, filepath.Join(dir, "smooth.png"), gray8(1, 1, 20))
	names, err := ListCandidates(dir)
	if err != nil {
		t.Fatal(err)
	}
	res, err := ResolveSlot(dir, names, SlotSmooth.Slot())
	if err != nil {
		t.Fatal(err)
	}
	if res.Provenance != Original || res.File != "smooth.png" {
		t.Errorf("got %v %q, want original smooth.png", res.Provenance, res.File)
	}
}

func TestResolveSlotAlternate(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "rough.png"), gray8(1, 1, 10))

	res, err := ResolveSlot(dir, []string{"rough.png"}, SlotSmooth.Slot())
	if err != nil {
		t.Fatal(err)
	}
	if res.Provenance != Alternate || res.File != "rough.png" {
		t.Errorf("got %v %q, want alternate rough.png", res.Provenance, res.File)
	}
	if !res.Inverted() || res.ConfigSlot() != SlotRough {
		t.Errorf("inverted=%v config slot=%v", res.Inverted(), res.ConfigSlot())
	}
}

func TestResolveSlotSynthetic(t *testing.T) {
	tests := []struct {
		slot     SlotKind
		layout   Layout
		first    []byte
		inverted bool
	}{
		{SlotColor, RGB, []byte{128, 128, 128}, false},
		{SlotNormal, RGB, []byte{128, 128, 255}, false},
		{SlotHeight, Grayscale, []byte{255}, false},
		{SlotMetal, Grayscale, []byte{0}, false},
		// Stored in the partner's terms.
		{SlotSmooth, Grayscale, []byte{255}, true},
		{SlotRough, Grayscale, []byte{0}, true},
	}
	for _, tt := range tests {
		res, err := ResolveSlot(t.TempDir(), nil, tt.slot.Slot())
		if err != nil {
			t.Fatal(err)
		}
		if res.Provenance != Synthetic || res.File != "" || res.Inverted() != tt.inverted {
			t.Errorf("%v: got %v %q inverted=%v", tt.slot, res.Provenance, res.File, res.Inverted())
		}
		img := res.Image
		if img.Width != PlaceholderSize || img.Height != PlaceholderSize || img.Layout != tt.layout {
			t.Errorf("%v: placeholder %dx%d %v", tt.slot, img.Width, img.Height, img.Layout)
		}
		if diff := cmp.Diff(tt.first, img.Pix[:len(tt.first)]); diff != "" {
			t.Errorf("%v: fill (-want +got):\n%s", tt.slot, diff)
		}
	}
}

func TestResolveSlotDecodeError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "height.png"), []byte("broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ResolveSlot(dir, []string{"height.png"}, SlotHeight.Slot())
	if !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestProvenanceString(t *testing.T) {
	got := []string{Original.String(), Alternate.String(), Synthetic.String()}
	if diff := cmp.Diff([]string{"original", "derived-from-alternate", "synthetic"}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
