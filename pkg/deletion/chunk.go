// pkg/deletion/chunk.go
package deletion

// Chunks partitions keys into contiguous, disjoint slices of at most size
// elements. The returned slices share backing storage with keys.
func Chunks(keys []string, size int) [][]string {
	if size <= 0 || len(keys) == 0 {
		return nil
	}

	chunks := make([][]string, 0, (len(keys)+size-1)/size)
	for start := 0; start < len(keys); start += size {
		end := start + size
		if end > len(keys) {
			end = len(keys)
		}
		chunks = append(chunks, keys[start:end])
	}

	return chunks
}
