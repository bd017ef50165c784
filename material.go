package labpbr

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaterialFiles are the configuration file names that mark a material
// directory, in lookup order.
var MaterialFiles = []string{"mat.yml", "mat.yaml", "material.yml", "material.yaml"}

// Number is an optional numeric configuration field. Values that do not
// parse as a finite number are treated as unset.
type Number struct {
	Value float64
	Set   bool
}

// Num returns a set Number.
func Num(v float64) Number { return Number{Value: v, Set: true} }

// ParseNumber parses s leniently; anything unparsable is unset.
func ParseNumber(s string) Number {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Num(v)
}

// Or returns the value, or def when unset.
func (n Number) Or(def float64) float64 {
	if !n.Set {
		return def
	}
	return n.Value
}

// IsZero lets yaml omit unset numbers.
func (n Number) IsZero() bool { return !n.Set }

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		*n = Number{}
		return nil
	}
	*n = ParseNumber(node.Value)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (n Number) MarshalYAML() (any, error) {
	if !n.Set {
		return nil, nil
	}
	return n.Value, nil
}

// AdjustmentConfig is the persisted form of a GrayscaleAdjustment.
type AdjustmentConfig struct {
	Value Number `yaml:"value,omitempty"`
	Shift Number `yaml:"shift,omitempty"`
	Scale Number `yaml:"scale,omitempty"`
}

// Resolve applies the defaults value=0, shift=0, scale=1.
func (a *AdjustmentConfig) Resolve() GrayscaleAdjustment {
	if a == nil {
		return IdentityAdjustment()
	}
	return GrayscaleAdjustment{
		Value: a.Value.Or(0),
		Shift: a.Shift.Or(0),
		Scale: a.Scale.Or(1),
	}
}

// NormalSection is the persisted form of a NormalConfig.
type NormalSection struct {
	CurveX     Number `yaml:"curve_x,omitempty"`
	CurveY     Number `yaml:"curve_y,omitempty"`
	RadiusX    Number `yaml:"radius_size_x,omitempty"`
	RadiusY    Number `yaml:"radius_size_y,omitempty"`
	NoiseAngle Number `yaml:"noise_angle,omitempty"`
	Method     Number `yaml:"method,omitempty"`
	Strength   Number `yaml:"strength,omitempty"`
}

// Resolve applies the documented defaults. Methods outside the catalog and
// non-positive strengths fall back to the defaults.
func (n *NormalSection) Resolve() NormalConfig {
	cfg := DefaultNormalConfig()
	if n == nil {
		return cfg
	}
	cfg.CurveX = n.CurveX.Or(cfg.CurveX)
	cfg.CurveY = n.CurveY.Or(cfg.CurveY)
	cfg.RadiusX = n.RadiusX.Or(cfg.RadiusX)
	cfg.RadiusY = n.RadiusY.Or(cfg.RadiusY)
	cfg.NoiseAngle = n.NoiseAngle.Or(cfg.NoiseAngle)
	if m := Method(n.Method.Or(0)); m.Valid() && n.Method.Value == math.Trunc(n.Method.Value) {
		cfg.Method = m
	}
	if s := n.Strength.Or(DefaultStrength); s > 0 {
		cfg.Strength = s
	}
	return cfg
}

// MaterialConfig is the content of a material's mat.yml.
type MaterialConfig struct {
	Opacity  *AdjustmentConfig `yaml:"opacity,omitempty"`
	Smooth   *AdjustmentConfig `yaml:"smooth,omitempty"`
	Rough    *AdjustmentConfig `yaml:"rough,omitempty"`
	Metal    *AdjustmentConfig `yaml:"metal,omitempty"`
	F0       *AdjustmentConfig `yaml:"f0,omitempty"`
	Porosity *AdjustmentConfig `yaml:"porosity,omitempty"`
	SSS      *AdjustmentConfig `yaml:"sss,omitempty"`
	Emissive *AdjustmentConfig `yaml:"emissive,omitempty"`
	Normal   *NormalSection    `yaml:"normal,omitempty"`
}

// adjustmentField returns the config field of an adjustable slot, or nil.
func (c *MaterialConfig) adjustmentField(k SlotKind) **AdjustmentConfig {
	switch k {
	case SlotOpacity:
		return &c.Opacity
	case SlotSmooth:
		return &c.Smooth
	case SlotRough:
		return &c.Rough
	case SlotMetal:
		return &c.Metal
	case SlotF0:
		return &c.F0
	case SlotPorosity:
		return &c.Porosity
	case SlotSSS:
		return &c.SSS
	case SlotEmissive:
		return &c.Emissive
	default:
		return nil
	}
}

// Adjustment returns the resolved adjustment of slot k. Slots without an
// adjustment return the identity.
func (c *MaterialConfig) Adjustment(k SlotKind) GrayscaleAdjustment {
	f := c.adjustmentField(k)
	if f == nil {
		return IdentityAdjustment()
	}
	return (*f).Resolve()
}

// SetAdjustment stores adj for slot k.
func (c *MaterialConfig) SetAdjustment(k SlotKind, adj GrayscaleAdjustment) error {
	f := c.adjustmentField(k)
	if f == nil {
		return newError("set adjustment", "", ErrValidation, fmt.Errorf("slot %v has no grayscale adjustment", k))
	}
	*f = &AdjustmentConfig{Value: Num(adj.Value), Shift: Num(adj.Shift), Scale: Num(adj.Scale)}
	return nil
}

// NormalConfig returns the resolved normal section.
func (c *MaterialConfig) NormalConfig() NormalConfig {
	return c.Normal.Resolve()
}

// SetNormalConfig stores cfg as the normal section.
func (c *MaterialConfig) SetNormalConfig(cfg NormalConfig) {
	c.Normal = &NormalSection{
		CurveX:     Num(cfg.CurveX),
		CurveY:     Num(cfg.CurveY),
		RadiusX:    Num(cfg.RadiusX),
		RadiusY:    Num(cfg.RadiusY),
		NoiseAngle: Num(cfg.NoiseAngle),
		Method:     Num(float64(cfg.Method)),
		Strength:   Num(cfg.Strength),
	}
}

// ParseAdjustment builds an adjustment from user-entered strings. Unparsable
// fields take their defaults and value is clamped to [0,255].
func ParseAdjustment(value, shift, scale string) GrayscaleAdjustment {
	return GrayscaleAdjustment{
		Value: max(0, min(255, ParseNumber(value).Or(0))),
		Shift: ParseNumber(shift).Or(0),
		Scale: ParseNumber(scale).Or(1),
	}
}

// ParseNormalConfig builds a normal configuration from user-entered strings.
// Unparsable fields take their defaults.
func ParseNormalConfig(curveX, curveY, radiusX, radiusY, noiseAngle, method, strength string) NormalConfig {
	n := NormalSection{
		CurveX:     ParseNumber(curveX),
		CurveY:     ParseNumber(curveY),
		RadiusX:    ParseNumber(radiusX),
		RadiusY:    ParseNumber(radiusY),
		NoiseAngle: ParseNumber(noiseAngle),
		Method:     ParseNumber(method),
		Strength:   ParseNumber(strength),
	}
	return n.Resolve()
}

// ParseMaterialConfig decodes mat.yml content. Empty content is a valid,
// empty configuration.
func ParseMaterialConfig(data []byte) (*MaterialConfig, error) {
	cfg := &MaterialConfig{}
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, newError("parse config", "", ErrConfig, err)
	}
	return cfg, nil
}

// Marshal encodes the configuration as YAML.
func (c *MaterialConfig) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, newError("marshal config", "", ErrConfig, err)
	}
	return data, nil
}

// FindMaterialFile returns the path of the configuration file in dir.
func FindMaterialFile(dir string) (string, error) {
	for _, name := range MaterialFiles {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", newError("find config", dir, ErrIO, fs.ErrNotExist)
}

// IsMaterialDir reports whether dir contains a material configuration file.
func IsMaterialDir(dir string) bool {
	_, err := FindMaterialFile(dir)
	return err == nil
}

// LoadMaterialConfig reads a configuration file.
func LoadMaterialConfig(path string) (*MaterialConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError("read config", path, ErrIO, err)
	}
	cfg, err := ParseMaterialConfig(data)
	if err != nil {
		return nil, withPath(err, path)
	}
	return cfg, nil
}

// SaveMaterialConfig writes cfg to path.
func SaveMaterialConfig(path string, cfg *MaterialConfig) error {
	data, err := cfg.Marshal()
	if err != nil {
		return withPath(err, path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return newError("write config", path, ErrIO, err)
	}
	return nil
}

// IsNotExist reports whether err is caused by a missing file.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
