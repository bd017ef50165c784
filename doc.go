/*
Package labpbr derives PBR texture sets from legacy resource pack textures.

It decomposes a color texture, a combined normal/AO/height texture ("_n") and
a combined specular texture ("_s") into single-channel maps (opacity, ao,
height, smooth, emissive, f0, hcm, porosity, sss), synthesizes tangent-space
normal maps from height maps with seamless tiling, and applies per-material
grayscale adjustments and surface curvature read from mat.yml.

Decompose a pack texture:

	report, err := labpbr.Decompose("pack", "assets/minecraft/textures/block/stone_s.png", nil)
	if err != nil {
		// handle error
	}
	_ = report.Written

Process one slot of a material directory:

	m, err := labpbr.OpenMaterial("pack/assets/minecraft/textures/block/stone", nil)
	if err != nil {
		// handle error
	}
	res, err := m.Process(labpbr.SlotRough)
	if err != nil {
		// handle error
	}
	b64, err := res.Base64()

Synthesize a normal map:

	height, err := labpbr.DecodeFile("height.png")
	if err != nil {
		// handle error
	}
	normal, err := labpbr.SynthesizeNormal(height, labpbr.MethodSobel3, 1, nil)

All pixel operations split the image into row chunks processed concurrently;
see Options.
*/
package labpbr
