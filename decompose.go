package labpbr

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// SourceKind classifies a texture of a legacy resource pack.
type SourceKind int

const (
	// SourceColor is a plain color texture; its alpha becomes opacity.
	SourceColor SourceKind = iota
	// SourceNormal is a "_n" texture: normal XY in RG, AO in B, height in A.
	SourceNormal
	// SourceSpecular is a "_s" texture: smoothness in R, f0/hcm in G,
	// porosity/sss in B, emissive in A.
	SourceSpecular
)

func (k SourceKind) String() string {
	switch k {
	case SourceNormal:
		return "normal"
	case SourceSpecular:
		return "specular"
	default:
		return "color"
	}
}

// Legacy specular channel breakpoints.
var (
	F0Range       = SplitRange{Start: 0, End: 229}
	PorosityRange = SplitRange{Start: 0, End: 127, Scale: true}
)

// ignoredDirs hold pack textures that are not materials.
var ignoredDirs = []string{
	"colormap", "effect", "environment", "font", "gui", "map", "misc", "mob_effect", "models",
}

// ClassifySource returns the kind of a pack texture by its file name suffix.
func ClassifySource(name string) SourceKind {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, "_n.png"):
		return SourceNormal
	case strings.HasSuffix(lower, "_s.png"):
		return SourceSpecular
	default:
		return SourceColor
	}
}

// Eligible reports whether a pack-relative path should be decomposed.
func Eligible(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	if !strings.EqualFold(filepath.Ext(relPath), ".png") {
		return false
	}
	parts := strings.Split(relPath, "/")
	if strings.EqualFold(parts[len(parts)-1], "pack.png") {
		return false
	}
	for _, p := range parts[:len(parts)-1] {
		if slices.Contains(ignoredDirs, strings.ToLower(p)) {
			return false
		}
	}
	return true
}

// MaterialDir returns the material directory of a pack texture: its path
// without the "_n"/"_s" suffix and extension.
func MaterialDir(root, relPath string) string {
	base := relPath[:len(relPath)-len(filepath.Ext(relPath))]
	switch ClassifySource(relPath) {
	case SourceNormal, SourceSpecular:
		base = base[:len(base)-2]
	}
	return filepath.Join(root, base)
}

// Report describes the outcome of one Decompose call.
type Report struct {
	Source      string
	MaterialDir string
	Kind        SourceKind
	Written     []string // File names written into MaterialDir
	Skipped     []string // Maps skipped because they carry no information
	Errors      []error  // Per-map failures
}

// Err joins the per-map failures.
func (r *Report) Err() error {
	return errors.Join(r.Errors...)
}

// Decompose splits one legacy pack texture at root/relPath into the PBR maps
// of its material directory, creating the directory and an empty mat.yml if
// needed. A failing map does not stop the others; see Report.Errors.
// Consumed "_n" and "_s" sources are removed once every map was written.
func Decompose(root, relPath string, opt *Options) (*Report, error) {
	start := time.Now()
	o := opt.normalize()
	src := filepath.Join(root, relPath)
	r := &Report{Source: src, MaterialDir: MaterialDir(root, relPath), Kind: ClassifySource(relPath)}

	if err := os.MkdirAll(r.MaterialDir, 0o755); err != nil {
		return r, newError("mkdir", r.MaterialDir, ErrIO, err)
	}
	if !IsMaterialDir(r.MaterialDir) {
		p := filepath.Join(r.MaterialDir, MaterialFiles[0])
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			return r, newError("write config", p, ErrIO, err)
		}
	}

	img, err := DecodeFile(src)
	if err != nil {
		return r, err
	}

	switch r.Kind {
	case SourceNormal:
		r.extract(img, 2, false, "ao.png", &o)
		r.extractAlpha(img, false, "height.png", &o)
		r.normal(img, "normal.png")
	case SourceSpecular:
		r.extract(img, 0, false, "smooth.png", &o)
		r.extractAlpha(img, true, "emissive.png", &o)
		r.split(img, 1, F0Range, "f0.png", "hcm.png", &o)
		r.split(img, 2, PorosityRange, "porosity.png", "sss.png", &o)
	default:
		dst := filepath.Join(r.MaterialDir, "color.png")
		if err := os.Rename(src, dst); err != nil {
			return r, newError("rename", src, ErrIO, err)
		}
		r.Written = append(r.Written, "color.png")
		r.extractAlpha(img, false, "opacity.png", &o)
	}

	if r.Kind != SourceColor && len(r.Errors) == 0 {
		if err := os.Remove(src); err != nil {
			r.Errors = append(r.Errors, newError("remove", src, ErrIO, err))
		}
	}
	for _, err := range r.Errors {
		Logger().Warn("decompose", "source", src, "err", err)
	}
	traceStage("decompose", img.Width, img.Height, start)
	return r, nil
}

func (r *Report) write(name string, img *RasterImage) {
	if err := EncodeFile(filepath.Join(r.MaterialDir, name), img); err != nil {
		r.Errors = append(r.Errors, err)
		return
	}
	r.Written = append(r.Written, name)
}

func (r *Report) skip(name string) {
	Logger().Debug("map skipped", "source", r.Source, "map", name)
	r.Skipped = append(r.Skipped, name)
}

// extractAlpha extracts the alpha channel, or a color key turned into alpha.
// A source without either has no information for alpha-derived maps.
func (r *Report) extractAlpha(img *RasterImage, invert bool, name string, opt *Options) {
	a := img.AlphaChannel()
	if a < 0 {
		r.skip(name)
		return
	}
	r.extract(img, a, invert, name, opt)
}

func (r *Report) extract(img *RasterImage, channel int, invert bool, name string, opt *Options) {
	out, err := ExtractChannel(img, channel, invert, opt)
	switch {
	case errors.Is(err, ErrFullyOpaque):
		r.skip(name)
	case err != nil:
		r.Errors = append(r.Errors, withPath(err, r.Source))
	default:
		r.write(name, out)
	}
}

func (r *Report) split(img *RasterImage, channel int, rng SplitRange, inside, outside string, opt *Options) {
	a, b, err := SplitChannel(img, channel, rng, false, opt)
	if err != nil {
		r.Errors = append(r.Errors, withPath(err, r.Source))
		return
	}
	r.write(inside, a)
	r.write(outside, b)
}

// normal keeps the XY channels of a legacy normal texture and sets Z to 255.
func (r *Report) normal(img *RasterImage, name string) {
	if img.Channels() < 2 {
		r.Errors = append(r.Errors, newError("normal", r.Source, ErrValidation, errors.New("normal texture needs at least 2 channels")))
		return
	}
	out := mustRaster(img.Width, img.Height, Depth8, RGB)
	shift := 0
	if img.Depth == Depth16 {
		shift = 8
	}
	for y := range img.Height {
		for x := range img.Width {
			i := (y*img.Width + x) * 3
			out.Pix[i] = byte(img.Sample(x, y, 0) >> shift)
			out.Pix[i+1] = byte(img.Sample(x, y, 1) >> shift)
			out.Pix[i+2] = 0xff
		}
	}
	r.write(name, out)
}
