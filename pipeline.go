package labpbr

import (
	"fmt"
	"path/filepath"
)

// Material is one material directory together with its configuration.
type Material struct {
	Dir        string
	ConfigPath string
	Config     *MaterialConfig
	Names      []string // Candidate file names in Dir
	opt        Options
}

// OpenMaterial loads the configuration and file list of a material directory.
func OpenMaterial(dir string, opt *Options) (*Material, error) {
	path, err := FindMaterialFile(dir)
	if err != nil {
		return nil, err
	}
	cfg, err := LoadMaterialConfig(path)
	if err != nil {
		return nil, err
	}
	names, err := ListCandidates(dir)
	if err != nil {
		return nil, err
	}
	return &Material{Dir: dir, ConfigPath: path, Config: cfg, Names: names, opt: opt.normalize()}, nil
}

// Save writes the configuration back to its file.
func (m *Material) Save() error {
	return SaveMaterialConfig(m.ConfigPath, m.Config)
}

// Resolve resolves slot k without further processing.
func (m *Material) Resolve(k SlotKind) (Resolution, error) {
	if !k.Valid() {
		return Resolution{}, newError("resolve", m.Dir, ErrValidation, fmt.Errorf("unknown slot %d", int(k)))
	}
	return ResolveSlot(m.Dir, m.Names, k.Slot())
}

// Result is a processed slot image.
type Result struct {
	Slot       SlotKind
	Provenance Provenance
	File       string // Source file, empty for placeholders
	Image      *RasterImage
}

// PNG returns the result encoded as PNG.
func (r *Result) PNG() ([]byte, error) {
	return EncodeBytes(r.Image)
}

// Base64 returns the result as a base64 PNG string.
func (r *Result) Base64() (string, error) {
	return EncodeBase64(r.Image)
}

// Process resolves slot k and applies the material's corrections:
// grayscale slots are reduced to luma and adjusted, normal slots are curved
// or synthesized from the height map.
func (m *Material) Process(k SlotKind) (*Result, error) {
	if !k.Valid() {
		return nil, newError("process", m.Dir, ErrValidation, fmt.Errorf("unknown slot %d", int(k)))
	}
	res, err := m.Resolve(k)
	if err != nil {
		return nil, err
	}
	out := &Result{Slot: k, Provenance: res.Provenance, File: res.File, Image: res.Image}

	switch {
	case res.Slot.Grayscale:
		out.Image, err = m.processGrayscale(res)
	case k == SlotNormal:
		out.Image, out.File, err = m.processNormal(res)
	}
	if err != nil {
		return nil, withPath(err, filepath.Join(m.Dir, res.File))
	}
	return out, nil
}

func (m *Material) processGrayscale(res Resolution) (*RasterImage, error) {
	img, err := ToLuma(res.Image, &m.opt)
	if err != nil {
		return nil, err
	}
	if res.Slot.Adjustable {
		// Derived images carry the partner's values, so the partner's
		// adjustment applies before inversion.
		img, err = Adjust(img, m.Config.Adjustment(res.ConfigSlot()), &m.opt)
		if err != nil {
			return nil, err
		}
	}
	if res.Inverted() {
		return Invert(img)
	}
	return img, nil
}

func (m *Material) processNormal(res Resolution) (*RasterImage, string, error) {
	cfg := m.Config.NormalConfig()
	if res.Provenance == Original {
		img, err := m.normalRGB(res.Image)
		if err != nil {
			return nil, res.File, err
		}
		img, err = ApplyCurvature(img, cfg, &m.opt)
		return img, res.File, err
	}

	height, err := ResolveSlot(m.Dir, m.Names, SlotHeight.Slot())
	if err != nil {
		return nil, "", err
	}
	if height.Provenance != Original {
		return res.Image, "", nil
	}
	img, err := GenerateNormal(height.Image, cfg, &m.opt)
	return img, height.File, err
}

// normalRGB converts normal maps stored in other layouts to 8-bit RGB so
// curvature can be applied.
func (m *Material) normalRGB(img *RasterImage) (*RasterImage, error) {
	if img.Depth == Depth8 && (img.Layout == RGB || img.Layout == RGBA) {
		return img, nil
	}
	if img.Channels() < 3 {
		return nil, newError("normal", "", ErrValidation, fmt.Errorf("normal map needs 3 channels, got %v", img.Layout))
	}
	return convertImage(img.Image(), RGB, Depth8), nil
}

// UpdateAdjustment parses user-entered strings, stores them for slot k and
// saves the configuration.
func (m *Material) UpdateAdjustment(k SlotKind, value, shift, scale string) error {
	if err := m.Config.SetAdjustment(k, ParseAdjustment(value, shift, scale)); err != nil {
		return withPath(err, m.ConfigPath)
	}
	return m.Save()
}

// UpdateNormal parses user-entered strings, stores them as the normal
// section and saves the configuration.
func (m *Material) UpdateNormal(curveX, curveY, radiusX, radiusY, noiseAngle, method, strength string) error {
	m.Config.SetNormalConfig(ParseNormalConfig(curveX, curveY, radiusX, radiusY, noiseAngle, method, strength))
	return m.Save()
}
