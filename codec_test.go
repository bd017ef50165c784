package labpbr

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		depth  BitDepth
		layout Layout
	}{
		{Depth8, Grayscale},
		{Depth8, GrayscaleAlpha},
		{Depth8, RGB},
		{Depth8, RGBA},
		{Depth8, Indexed},
		{Depth16, Grayscale},
		{Depth16, GrayscaleAlpha},
		{Depth16, RGB},
		{Depth16, RGBA},
	}
	for _, tt := range tests {
		t.Run(tt.layout.String(), func(t *testing.T) {
			want := filled(t, 5, 3, tt.depth, tt.layout)
			data, err := EncodeBytes(want)
			if err != nil {
				t.Fatalf("EncodeBytes: %v", err)
			}
			got, err := DecodeBytes(data)
			if err != nil {
				t.Fatalf("DecodeBytes: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("%d-bit round trip mismatch (-want +got):\n%s", tt.depth, diff)
			}
		})
	}
}

func TestEncodeReadableByImagePNG(t *testing.T) {
	src := filled(t, 4, 4, Depth8, RGB)
	data, err := EncodeBytes(src)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	r, g, b, _ := img.At(1, 0).RGBA()
	want := [3]uint32{uint32(src.Pix[3]) * 0x101, uint32(src.Pix[4]) * 0x101, uint32(src.Pix[5]) * 0x101}
	if got := [3]uint32{r, g, b}; got != want {
		t.Errorf("pixel (1,0) = %v, want %v", got, want)
	}
}

func TestDecodeKeepsHeaderLayout(t *testing.T) {
	// image/png encodes an opaque NRGBA image as RGB; the header wins.
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	img, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if img.Layout != RGB || img.Depth != Depth8 {
		t.Errorf("got %d-bit %v, want 8-bit rgb", img.Depth, img.Layout)
	}
}

func TestDecodeWidensLowBitDepth(t *testing.T) {
	src := image.NewPaletted(image.Rect(0, 0, 3, 1), color.Palette{color.Black, color.White})
	src.Pix = []byte{0, 1, 0}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	img, err := DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if img.Layout != Indexed || img.Depth != Depth8 {
		t.Fatalf("got %d-bit %v, want 8-bit indexed", img.Depth, img.Layout)
	}
	if got := img.Sample(1, 0, 0); got != 255 {
		t.Errorf("red of white pixel = %d, want 255", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	valid, err := EncodeBytes(filled(t, 4, 4, Depth8, RGB))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("definitely not an image")},
		{"truncated header", valid[:20]},
		{"truncated data", valid[:len(valid)-20]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBytes(tt.data)
			if !errors.Is(err, ErrDecode) {
				t.Errorf("err = %v, want ErrDecode", err)
			}
		})
	}
}

func TestDecodeFileErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := DecodeFile(filepath.Join(dir, "missing.png"))
	if !errors.Is(err, ErrIO) || !IsNotExist(err) {
		t.Errorf("missing file: err = %v, want ErrIO wrapping fs.ErrNotExist", err)
	}

	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = DecodeFile(bad)
	var e *Error
	if !errors.As(err, &e) || e.Path != bad || !errors.Is(err, ErrDecode) {
		t.Errorf("bad file: err = %v, want ErrDecode with path %s", err, bad)
	}
}

func TestEncodeFileAndBase64(t *testing.T) {
	img := filled(t, 2, 2, Depth8, GrayscaleAlpha)
	path := filepath.Join(t.TempDir(), "out.png")
	if err := EncodeFile(path, img); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(img, got); diff != "" {
		t.Errorf("file round trip mismatch (-want +got):\n%s", diff)
	}

	s, err := EncodeBase64(img)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte(pngSignature)) {
		t.Error("base64 payload is not a PNG")
	}
}

func TestEncodeRejectsInvalidImage(t *testing.T) {
	img := &RasterImage{Width: 2, Height: 2, Depth: Depth8, Layout: RGB, Pix: make([]byte, 3)}
	if _, err := EncodeBytes(img); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

// rawPNG assembles a PNG from an IHDR, extra chunks before IDAT and
// unfiltered scanlines.
func rawPNG(t *testing.T, w, h, depth, colorType int, chunks map[string][]byte, rows ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(pngSignature)
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(w))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(h))
	ihdr[8], ihdr[9] = byte(depth), byte(colorType)
	writeChunk(&buf, "IHDR", ihdr)
	for typ, data := range chunks {
		writeChunk(&buf, typ, data)
	}
	var idat bytes.Buffer
	zw := zlib.NewWriter(&idat)
	for _, row := range rows {
		zw.Write([]byte{0})
		zw.Write(row)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	writeChunk(&buf, "IDAT", idat.Bytes())
	writeChunk(&buf, "IEND", nil)
	return buf.Bytes()
}

func TestDecodeColorKey(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		wantPix   []byte
		wantKey   []int
		wantAlpha []int
	}{
		{
			name:      "gray8",
			data:      rawPNG(t, 2, 1, 8, ctGray, map[string][]byte{"tRNS": {0x00, 0x0a}}, []byte{10, 200}),
			wantPix:   []byte{10, 200},
			wantKey:   []int{10},
			wantAlpha: []int{0, 255},
		},
		{
			name:      "gray1",
			data:      rawPNG(t, 3, 1, 1, ctGray, map[string][]byte{"tRNS": {0x00, 0x01}}, []byte{0b10100000}),
			wantPix:   []byte{255, 0, 255},
			wantKey:   []int{255},
			wantAlpha: []int{0, 255, 0},
		},
		{
			name:      "rgb8",
			data:      rawPNG(t, 2, 1, 8, ctRGB, map[string][]byte{"tRNS": {0, 1, 0, 2, 0, 3}}, []byte{1, 2, 3, 1, 2, 4}),
			wantPix:   []byte{1, 2, 3, 1, 2, 4},
			wantKey:   []int{1, 2, 3},
			wantAlpha: []int{0, 255},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := DecodeBytes(tt.data)
			if err != nil {
				t.Fatalf("DecodeBytes: %v", err)
			}
			if diff := cmp.Diff(tt.wantPix, img.Pix); diff != "" {
				t.Errorf("pix (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantKey, img.Key); diff != "" {
				t.Errorf("key (-want +got):\n%s", diff)
			}
			a := img.AlphaChannel()
			if a != img.Layout.samples() || img.Channels() != a+1 {
				t.Fatalf("alpha channel %d of %d", a, img.Channels())
			}
			for x, want := range tt.wantAlpha {
				if got := img.Sample(x, 0, a); got != want {
					t.Errorf("alpha at %d = %d, want %d", x, got, want)
				}
			}
		})
	}
}

func TestEncodeDecodeColorKeyRoundTrip(t *testing.T) {
	tests := []struct {
		depth  BitDepth
		layout Layout
		key    []int
	}{
		{Depth8, Grayscale, []int{20}},
		{Depth16, Grayscale, []int{0x1234}},
		{Depth8, RGB, []int{10, 20, 30}},
		{Depth16, RGB, []int{0, 0xffff, 7}},
	}
	for _, tt := range tests {
		want := filled(t, 4, 2, tt.depth, tt.layout)
		want.Key = tt.key
		data, err := EncodeBytes(want)
		if err != nil {
			t.Fatalf("%d-bit %v: EncodeBytes: %v", tt.depth, tt.layout, err)
		}
		if !bytes.Contains(data, []byte("tRNS")) {
			t.Errorf("%d-bit %v: encoded file has no tRNS chunk", tt.depth, tt.layout)
		}
		got, err := DecodeBytes(data)
		if err != nil {
			t.Fatalf("%d-bit %v: DecodeBytes: %v", tt.depth, tt.layout, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%d-bit %v round trip mismatch (-want +got):\n%s", tt.depth, tt.layout, diff)
		}
	}
}

func TestEncodeColorKeyReadableByImagePNG(t *testing.T) {
	src := gray8(2, 1, 10, 200)
	src.Key = []int{10}
	data, err := EncodeBytes(src)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Errorf("keyed pixel alpha = %d, want 0", a)
	}
	if _, _, _, a := img.At(1, 0).RGBA(); a != 0xffff {
		t.Errorf("opaque pixel alpha = %d, want 0xffff", a)
	}
}

func TestIsPNGFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	writePNG(t, good, gray8(1, 1, 0))
	fake := filepath.Join(dir, "fake.png")
	if err := os.WriteFile(fake, []byte("GIF89a"), 0o644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.png")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	for path, want := range map[string]bool{good: true, fake: false, empty: false} {
		got, err := IsPNGFile(path)
		if err != nil || got != want {
			t.Errorf("IsPNGFile(%s) = %v, %v, want %v", filepath.Base(path), got, err, want)
		}
	}
	if _, err := IsPNGFile(filepath.Join(dir, "missing.png")); !errors.Is(err, ErrIO) {
		t.Errorf("missing file: err = %v, want ErrIO", err)
	}
}
