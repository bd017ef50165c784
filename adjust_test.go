package labpbr

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAdjust(t *testing.T) {
	src := gray8(4, 1, 0, 64, 128, 255)
	tests := []struct {
		name string
		adj  GrayscaleAdjustment
		want []byte
	}{
		{"identity", IdentityAdjustment(), []byte{0, 64, 128, 255}},
		{"value", GrayscaleAdjustment{Value: 200, Scale: 1}, []byte{200, 200, 200, 200}},
		{"value clamped", GrayscaleAdjustment{Value: 900, Scale: 1}, []byte{255, 255, 255, 255}},
		{"zero value is inactive", GrayscaleAdjustment{Value: 0, Shift: 0, Scale: 1}, []byte{0, 64, 128, 255}},
		{"negative value is inactive", GrayscaleAdjustment{Value: -5, Scale: 1}, []byte{0, 64, 128, 255}},
		{"shift", GrayscaleAdjustment{Shift: 0.2, Scale: 1}, []byte{51, 115, 179, 255}},
		{"scale", GrayscaleAdjustment{Scale: 2}, []byte{0, 128, 255, 255}},
		{"shift then scale", GrayscaleAdjustment{Shift: -0.2, Scale: 2}, []byte{0, 26, 154, 255}},
		{"zero scale", GrayscaleAdjustment{Shift: 0.3, Scale: 0}, []byte{0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Adjust(src, tt.adj, nil)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got.Pix); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestAdjustSixteenBit(t *testing.T) {
	src := mustRaster(2, 1, Depth16, Grayscale)
	copy(src.Pix, []byte{0x00, 0x00, 0x80, 0x00})

	got, err := Adjust(src, GrayscaleAdjustment{Value: 255, Scale: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Depth != Depth16 || got.Sample(0, 0, 0) != 0xffff {
		t.Errorf("value fill = %d-bit %#x, want 16-bit 0xffff", got.Depth, got.Sample(0, 0, 0))
	}

	got, err = Adjust(src, GrayscaleAdjustment{Scale: 0.5}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v := got.Sample(1, 0, 0); v != 0x4000 {
		t.Errorf("scaled sample = %#x, want 0x4000", v)
	}
}

func TestAdjustRejectsColor(t *testing.T) {
	if _, err := Adjust(mustRaster(1, 1, Depth8, RGB), IdentityAdjustment(), nil); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}
