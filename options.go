package labpbr

import "runtime"

// Options controls how pixel work is scheduled.
type Options struct {
	// Workers is the number of goroutines used for row chunks.
	// Zero or negative uses GOMAXPROCS.
	Workers int
}

// DefaultOptions returns Options using every available core.
func DefaultOptions() Options {
	return Options{Workers: runtime.GOMAXPROCS(0)}
}

func (o *Options) normalize() Options {
	if o == nil {
		return DefaultOptions()
	}
	out := *o
	if out.Workers <= 0 {
		out.Workers = runtime.GOMAXPROCS(0)
	}
	return out
}
