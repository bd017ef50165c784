package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gocarina/gocsv"
	"golang.org/x/sync/errgroup"

	"github.com/setanarut/labpbr"
	"github.com/setanarut/labpbr/utils"
)

// openMaterial opens dir and explains a missing configuration file.
func openMaterial(dir string) (*labpbr.Material, error) {
	m, err := labpbr.OpenMaterial(dir, nil)
	if labpbr.IsNotExist(err) {
		return nil, fmt.Errorf("%s is not a material directory (no %s): %w", dir, strings.Join(labpbr.MaterialFiles, ", "), err)
	}
	return m, err
}

// collectSources returns the pack-relative paths of every texture to
// decompose. Textures already inside a material directory are left alone, as
// are files named .png that are not PNG images.
func collectSources(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && labpbr.IsMaterialDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if !labpbr.Eligible(rel) {
			return nil
		}
		ok, err := labpbr.IsPNGFile(path)
		if err != nil {
			return err
		}
		if !ok {
			labpbr.Logger().Warn("not a PNG file, skipped", "path", path)
			return nil
		}
		out = append(out, rel)
		return nil
	})
	return out, err
}

func runDecompose(args []string) error {
	flags := flag.NewFlagSet("decompose", flag.ExitOnError)
	workers := flags.Int("workers", runtime.NumCPU(), "number of textures processed concurrently")
	root, err := parseDir(flags, args)
	if err != nil {
		return err
	}

	sources, err := collectSources(root)
	if err != nil {
		return err
	}

	// Each texture runs single-threaded; concurrency comes from the group.
	opt := &labpbr.Options{Workers: 1}
	reports := make([]*labpbr.Report, len(sources))
	failures := make([]error, len(sources))

	var g errgroup.Group
	g.SetLimit(max(1, *workers))
	for i, rel := range sources {
		g.Go(func() error {
			r, err := labpbr.Decompose(root, rel, opt)
			reports[i] = r
			if err == nil {
				err = r.Err()
			}
			failures[i] = err
			return nil
		})
	}
	_ = g.Wait()

	written, size := 0, uint64(0)
	for _, r := range reports {
		if r == nil {
			continue
		}
		written += len(r.Written)
		for _, name := range r.Written {
			if info, err := os.Stat(filepath.Join(r.MaterialDir, name)); err == nil {
				size += uint64(info.Size())
			}
		}
	}
	fmt.Printf("decomposed %d textures, wrote %d maps (%s)\n", len(sources), written, humanize.Bytes(size))
	return errors.Join(failures...)
}

type slotRow struct {
	Slot       string `csv:"slot"`
	Provenance string `csv:"provenance"`
	File       string `csv:"file"`
	Width      int    `csv:"width"`
	Height     int    `csv:"height"`
	Layout     string `csv:"layout"`
	Depth      int    `csv:"depth"`
}

func runInspect(args []string) error {
	flags := flag.NewFlagSet("inspect", flag.ExitOnError)
	dir, err := parseDir(flags, args)
	if err != nil {
		return err
	}
	m, err := openMaterial(dir)
	if err != nil {
		return err
	}

	var rows []*slotRow
	var failures []error
	for _, s := range labpbr.Slots() {
		res, err := m.Resolve(s.Kind)
		if err != nil {
			failures = append(failures, err)
			rows = append(rows, &slotRow{Slot: s.Name, Provenance: "error"})
			continue
		}
		rows = append(rows, &slotRow{
			Slot:       s.Name,
			Provenance: res.Provenance.String(),
			File:       res.File,
			Width:      res.Image.Width,
			Height:     res.Image.Height,
			Layout:     res.Image.Layout.String(),
			Depth:      int(res.Image.Depth),
		})
	}
	if err := gocsv.Marshal(rows, os.Stdout); err != nil {
		return err
	}
	return errors.Join(failures...)
}

func runNormal(args []string) error {
	flags := flag.NewFlagSet("normal", flag.ExitOnError)
	method := flags.Int("method", -1, "kernel: 0 sobel3, 1 sobel5, 2 sobel9, 3 low, 4 high (default from mat.yml)")
	strength := flags.Float64("strength", 0, "normal strength (default from mat.yml)")
	curveX := flags.Float64("curve-x", 0, "curvature about X in degrees")
	curveY := flags.Float64("curve-y", 0, "curvature about Y in degrees")
	output := flags.String("output", "normal.png", "output file name inside the material directory")
	from := flags.String("from", "", "height image to use instead of the material height map (PNG or JPEG)")
	dir, err := parseDir(flags, args)
	if err != nil {
		return err
	}
	m, err := openMaterial(dir)
	if err != nil {
		return err
	}

	height, err := heightSource(m, *from)
	if err != nil {
		return err
	}

	cfg := m.Config.NormalConfig()
	if *method >= 0 {
		cfg.Method = labpbr.Method(*method)
	}
	if *strength > 0 {
		cfg.Strength = *strength
	}
	if *curveX != 0 {
		cfg.CurveX = *curveX
	}
	if *curveY != 0 {
		cfg.CurveY = *curveY
	}

	img, err := labpbr.GenerateNormal(height, cfg, nil)
	if err != nil {
		return err
	}
	return labpbr.EncodeFile(filepath.Join(dir, *output), img)
}

// heightSource returns the image decoded from path, or the height map of m
// when path is empty.
func heightSource(m *labpbr.Material, path string) (*labpbr.RasterImage, error) {
	if path != "" {
		img, err := utils.ReadImage(path)
		if err != nil {
			return nil, err
		}
		return labpbr.FromImage(img), nil
	}
	res, err := m.Resolve(labpbr.SlotHeight)
	if err != nil {
		return nil, err
	}
	if res.Provenance != labpbr.Original {
		return nil, fmt.Errorf("material %s has no height map", m.Dir)
	}
	return res.Image, nil
}

func runProcess(args []string) error {
	flags := flag.NewFlagSet("process", flag.ExitOnError)
	slot := flags.String("slot", "color", "texture slot name")
	b64 := flags.Bool("base64", false, "print the result as base64 instead of writing a file")
	output := flags.String("output", "", "output file (default <material>_<slot>.png in the working directory)")
	dir, err := parseDir(flags, args)
	if err != nil {
		return err
	}
	kind, err := labpbr.ParseSlotKind(*slot)
	if err != nil {
		return err
	}
	m, err := openMaterial(dir)
	if err != nil {
		return err
	}
	res, err := m.Process(kind)
	if err != nil {
		return err
	}
	if *b64 {
		s, err := res.Base64()
		if err != nil {
			return err
		}
		fmt.Println(s)
		return nil
	}
	// Writing into the material directory would add a file matching the slot.
	if *output == "" {
		*output = filepath.Base(filepath.Clean(dir)) + "_" + kind.String() + ".png"
	}
	return labpbr.EncodeFile(*output, res.Image)
}

func runPalette(args []string) error {
	flags := flag.NewFlagSet("palette", flag.ExitOnError)
	k := flags.Int("k", 7, "number of colors")
	useKMeans := flags.Bool("kmeans", false, "use k-means instead of dominant colors")
	tile := flags.Int("tile", 64, "tile size in pixels")
	asSVG := flags.Bool("svg", false, "write palette.svg instead of palette.png")
	dir, err := parseDir(flags, args)
	if err != nil {
		return err
	}
	m, err := openMaterial(dir)
	if err != nil {
		return err
	}
	method := utils.PaletteMethodDominantColor
	if *useKMeans {
		method = utils.PaletteMethodKMeans
	}
	p, err := utils.MaterialPalette(m, *k, method)
	if err != nil {
		return err
	}
	if *asSVG {
		return utils.SavePaletteSVG(p, *tile, filepath.Join(dir, "palette.svg"))
	}
	return utils.SavePalette(p, *tile, filepath.Join(dir, "palette.png"))
}

func runAdjust(args []string) error {
	flags := flag.NewFlagSet("adjust", flag.ExitOnError)
	slot := flags.String("slot", "", "adjustable slot name")
	value := flags.String("value", "0", "constant fill, 0 disables")
	shift := flags.String("shift", "0", "additive shift in [0,1] space")
	scale := flags.String("scale", "1", "multiplier")
	dir, err := parseDir(flags, args)
	if err != nil {
		return err
	}
	kind, err := labpbr.ParseSlotKind(*slot)
	if err != nil {
		return err
	}
	m, err := openMaterial(dir)
	if err != nil {
		return err
	}
	return m.UpdateAdjustment(kind, *value, *shift, *scale)
}
