package labpbr

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"os"
	"time"

	"github.com/h2non/filetype"
)

const pngSignature = "\x89PNG\r\n\x1a\n"

// PNG color types.
const (
	ctGray      = 0
	ctRGB       = 2
	ctIndexed   = 3
	ctGrayAlpha = 4
	ctRGBA      = 6
)

type pngHeader struct {
	width, height int
	depth         int
	colorType     int
}

// readHeader parses the IHDR chunk that must follow the signature.
func readHeader(data []byte) (pngHeader, error) {
	if len(data) < 33 {
		return pngHeader{}, errors.New("truncated header")
	}
	if binary.BigEndian.Uint32(data[8:12]) != 13 || string(data[12:16]) != "IHDR" {
		return pngHeader{}, errors.New("missing IHDR chunk")
	}
	h := pngHeader{
		width:     int(binary.BigEndian.Uint32(data[16:20])),
		height:    int(binary.BigEndian.Uint32(data[20:24])),
		depth:     int(data[24]),
		colorType: int(data[25]),
	}
	if h.width <= 0 || h.height <= 0 {
		return pngHeader{}, fmt.Errorf("invalid size %dx%d", h.width, h.height)
	}
	return h, nil
}

// chunkData returns the payload of the first chunk of type typ that precedes
// the image data, or nil.
func chunkData(data []byte, typ string) []byte {
	for p := len(pngSignature); p+8 <= len(data); {
		n := int(binary.BigEndian.Uint32(data[p : p+4]))
		name := string(data[p+4 : p+8])
		if name == "IDAT" || p+12+n > len(data) {
			return nil
		}
		if name == typ {
			return data[p+8 : p+8+n]
		}
		p += 12 + n
	}
	return nil
}

// colorKey parses a tRNS chunk of a gray or RGB image into samples of the
// decoded depth. Depths below 8 are widened like the pixels.
func colorKey(trns []byte, hdr pngHeader, layout Layout) ([]int, error) {
	n := layout.samples()
	if len(trns) != 2*n {
		return nil, fmt.Errorf("tRNS chunk has %d bytes, want %d", len(trns), 2*n)
	}
	key := make([]int, n)
	for i := range key {
		v := int(binary.BigEndian.Uint16(trns[2*i:]))
		switch {
		case hdr.depth == 16:
		case hdr.depth == 8:
			v &= 0xff
		default:
			m := 1<<hdr.depth - 1
			v = (v & m) * 0xff / m
		}
		key[i] = v
	}
	return key, nil
}

func layoutFor(colorType int) (Layout, bool) {
	switch colorType {
	case ctGray:
		return Grayscale, true
	case ctRGB:
		return RGB, true
	case ctIndexed:
		return Indexed, true
	case ctGrayAlpha:
		return GrayscaleAlpha, true
	case ctRGBA:
		return RGBA, true
	}
	return 0, false
}

func colorTypeFor(l Layout) int {
	switch l {
	case RGB:
		return ctRGB
	case Indexed:
		return ctIndexed
	case GrayscaleAlpha:
		return ctGrayAlpha
	case RGBA:
		return ctRGBA
	default:
		return ctGray
	}
}

// Decode reads a PNG image. The color layout and bit depth of the file header
// are kept; bit depths below 8 are widened to 8. A tRNS color key of a gray
// or RGB image is kept in Key.
func Decode(r io.Reader) (*RasterImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, newError("decode", "", ErrIO, err)
	}
	return DecodeBytes(data)
}

// DecodeBytes decodes PNG data held in memory.
func DecodeBytes(data []byte) (*RasterImage, error) {
	start := time.Now()
	if !filetype.Is(data, "png") {
		return nil, newError("decode", "", ErrDecode, errors.New("not a PNG file"))
	}
	hdr, err := readHeader(data)
	if err != nil {
		return nil, newError("decode", "", ErrDecode, err)
	}
	layout, ok := layoutFor(hdr.colorType)
	if !ok {
		return nil, newError("decode", "", ErrDecode, fmt.Errorf("unsupported color type %d", hdr.colorType))
	}
	depth := Depth8
	if hdr.depth == 16 {
		depth = Depth16
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, newError("decode", "", ErrDecode, err)
	}

	var out *RasterImage
	switch src := img.(type) {
	case *image.Gray:
		if layout == Grayscale {
			out = mustRaster(hdr.width, hdr.height, Depth8, Grayscale)
			copyRows(out, src.Pix, src.Stride)
		}
	case *image.NRGBA:
		if layout == RGBA && depth == Depth8 {
			out = mustRaster(hdr.width, hdr.height, Depth8, RGBA)
			copyRows(out, src.Pix, src.Stride)
		}
	}
	if out == nil {
		out = convertImage(img, layout, depth)
	}
	if layout == Grayscale || layout == RGB {
		if trns := chunkData(data, "tRNS"); trns != nil {
			if out.Key, err = colorKey(trns, hdr, layout); err != nil {
				return nil, newError("decode", "", ErrDecode, err)
			}
		}
	}
	traceStage("decode", out.Width, out.Height, start)
	return out, nil
}

func copyRows(dst *RasterImage, pix []byte, stride int) {
	n := dst.Stride()
	for y := range dst.Height {
		copy(dst.Pix[y*n:(y+1)*n], pix[y*stride:])
	}
}

// DecodeFile reads and decodes a PNG file.
func DecodeFile(path string) (*RasterImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError("read", path, ErrIO, err)
	}
	img, err := DecodeBytes(data)
	if err != nil {
		return nil, withPath(err, path)
	}
	return img, nil
}

// Encode writes img as PNG with exactly its layout, bit depth, palette and
// color key.
func Encode(w io.Writer, img *RasterImage) error {
	start := time.Now()
	if err := img.Validate(); err != nil {
		return err
	}
	if len(img.Palette) > 256 {
		return newError("encode", "", ErrValidation, fmt.Errorf("palette has %d entries", len(img.Palette)))
	}

	var buf bytes.Buffer
	buf.WriteString(pngSignature)

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(img.Width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(img.Height))
	ihdr[8] = byte(img.Depth)
	ihdr[9] = byte(colorTypeFor(img.Layout))
	writeChunk(&buf, "IHDR", ihdr)

	if img.Layout == Indexed {
		plte := make([]byte, 0, len(img.Palette)*3)
		last := -1
		for i, c := range img.Palette {
			plte = append(plte, c.R, c.G, c.B)
			if c.A != 0xff {
				last = i
			}
		}
		writeChunk(&buf, "PLTE", plte)
		if last >= 0 {
			trns := make([]byte, last+1)
			for i := range trns {
				trns[i] = img.Palette[i].A
			}
			writeChunk(&buf, "tRNS", trns)
		}
	}
	if img.Key != nil {
		trns := make([]byte, 2*len(img.Key))
		for i, k := range img.Key {
			binary.BigEndian.PutUint16(trns[2*i:], uint16(k))
		}
		writeChunk(&buf, "tRNS", trns)
	}

	var idat bytes.Buffer
	zw := zlib.NewWriter(&idat)
	stride := img.Stride()
	for y := range img.Height {
		// Filter type 0 (none) for every scanline.
		if _, err := zw.Write([]byte{0}); err != nil {
			return newError("encode", "", ErrIO, err)
		}
		if _, err := zw.Write(img.Pix[y*stride : (y+1)*stride]); err != nil {
			return newError("encode", "", ErrIO, err)
		}
	}
	if err := zw.Close(); err != nil {
		return newError("encode", "", ErrIO, err)
	}
	writeChunk(&buf, "IDAT", idat.Bytes())
	writeChunk(&buf, "IEND", nil)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return newError("encode", "", ErrIO, err)
	}
	traceStage("encode", img.Width, img.Height, start)
	return nil
}

func writeChunk(buf *bytes.Buffer, typ string, data []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(data)))
	buf.Write(n[:])
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	buf.WriteString(typ)
	buf.Write(data)
	binary.BigEndian.PutUint32(n[:], crc.Sum32())
	buf.Write(n[:])
}

// EncodeBytes returns img encoded as PNG.
func EncodeBytes(img *RasterImage) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeBase64 returns img as a standard base64 PNG string.
func EncodeBase64(img *RasterImage) (string, error) {
	data, err := EncodeBytes(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// EncodeFile writes img to path as PNG.
func EncodeFile(path string, img *RasterImage) error {
	data, err := EncodeBytes(img)
	if err != nil {
		return withPath(err, path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return newError("write", path, ErrIO, err)
	}
	return nil
}

// IsPNGFile reports whether the file at path starts with a PNG signature.
func IsPNGFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, newError("read", path, ErrIO, err)
	}
	defer f.Close()
	head := make([]byte, len(pngSignature))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, newError("read", path, ErrIO, err)
	}
	return filetype.Is(head[:n], "png"), nil
}
