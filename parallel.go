package labpbr

import "sync"

// minRowsPerChunk keeps tiny images on the calling goroutine.
const minRowsPerChunk = 16

// forRows splits [0,height) into contiguous chunks and runs fn on each chunk
// concurrently. Chunks never overlap, so fn may write rows y0..y1-1 of an
// output buffer without locking.
func forRows(height, workers int, fn func(y0, y1 int)) {
	if workers <= 1 || height <= minRowsPerChunk {
		fn(0, height)
		return
	}
	chunk := max((height+workers-1)/workers, minRowsPerChunk)

	var wg sync.WaitGroup
	for y0 := 0; y0 < height; y0 += chunk {
		y1 := min(y0+chunk, height)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(y0, y1)
		}()
	}
	wg.Wait()
}
