package labpbr

import "fmt"

// Method selects the gradient kernel used for normal synthesis.
type Method int

const (
	MethodSobel3 Method = iota // 3x3 Sobel
	MethodSobel5               // 5x5
	MethodSobel9               // 9x9
	MethodLow                  // 3x3 shallow
	MethodHigh                 // 3x3 steep (Scharr weights)
)

func (m Method) String() string {
	switch m {
	case MethodSobel3:
		return "sobel3"
	case MethodSobel5:
		return "sobel5"
	case MethodSobel9:
		return "sobel9"
	case MethodLow:
		return "low"
	case MethodHigh:
		return "high"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// Valid reports whether m names a kernel in the catalog.
func (m Method) Valid() bool {
	return m >= MethodSobel3 && m <= MethodHigh
}

// Kernel is a pair of square derivative kernels stored row-major.
// Kernels returned by KernelFor share storage with the catalog and must not
// be modified.
type Kernel struct {
	Size int
	X    []float64
	Y    []float64
}

// Radius is the distance from the center sample to the kernel edge.
func (k Kernel) Radius() int { return k.Size / 2 }

var kernels = [...]Kernel{
	MethodSobel3: {
		Size: 3,
		X: []float64{
			-1, 0, 1,
			-2, 0, 2,
			-1, 0, 1,
		},
		Y: []float64{
			-1, -2, -1,
			0, 0, 0,
			1, 2, 1,
		},
	},
	MethodSobel5: {
		Size: 5,
		X: []float64{
			-1, -2, 0, 2, 1,
			-4, -8, 0, 8, 4,
			-6, -12, 0, 12, 6,
			-4, -8, 0, 8, 4,
			-1, -2, 0, 2, 1,
		},
		Y: []float64{
			-1, -4, -6, -4, -1,
			-2, -8, -12, -8, -2,
			0, 0, 0, 0, 0,
			2, 8, 12, 8, 2,
			1, 4, 6, 4, 1,
		},
	},
	MethodSobel9: {
		Size: 9,
		X: []float64{
			-1, -2, -3, -4, 0, 4, 3, 2, 1,
			-2, -4, -6, -8, 0, 8, 6, 4, 2,
			-3, -6, -9, -12, 0, 12, 9, 6, 3,
			-4, -8, -12, -16, 0, 16, 12, 8, 4,
			-5, -10, -15, -20, 0, 20, 15, 10, 5,
			-4, -8, -12, -16, 0, 16, 12, 8, 4,
			-3, -6, -9, -12, 0, 12, 9, 6, 3,
			-2, -4, -6, -8, 0, 8, 6, 4, 2,
			-1, -2, -3, -4, 0, 4, 3, 2, 1,
		},
		Y: []float64{
			-1, -2, -3, -4, -5, -4, -3, -2, -1,
			-2, -4, -6, -8, -10, -8, -6, -4, -2,
			-3, -6, -9, -12, -15, -12, -9, -6, -3,
			-4, -8, -12, -16, -20, -16, -12, -8, -4,
			0, 0, 0, 0, 0, 0, 0, 0, 0,
			4, 8, 12, 16, 20, 16, 12, 8, 4,
			3, 6, 9, 12, 15, 12, 9, 6, 3,
			2, 4, 6, 8, 10, 8, 6, 4, 2,
			1, 2, 3, 4, 5, 4, 3, 2, 1,
		},
	},
	// The shallow and steep variants swap the axes of the Sobel pair and
	// flip their signs.
	MethodLow: {
		Size: 3,
		X: []float64{
			1, 2, 1,
			0, 0, 0,
			-1, -2, -1,
		},
		Y: []float64{
			1, 0, -1,
			2, 0, -2,
			1, 0, -1,
		},
	},
	MethodHigh: {
		Size: 3,
		X: []float64{
			3, 10, 3,
			0, 0, 0,
			-3, -10, -3,
		},
		Y: []float64{
			3, 0, -3,
			10, 0, -10,
			3, 0, -3,
		},
	},
}

// KernelFor returns the kernel for m. Unknown methods fall back to the 3x3
// Sobel kernel.
func KernelFor(m Method) Kernel {
	if !m.Valid() {
		Logger().Warn("unknown normal method, using sobel3", "method", int(m))
		return kernels[MethodSobel3]
	}
	return kernels[m]
}
