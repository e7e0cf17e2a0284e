// Package chunk splits document text into bounded-size context windows
// for prompt construction.
package chunk

// Split cuts text into consecutive, non-overlapping chunks of at most size
// bytes, in document order. No trimming or normalization is applied, so
// concatenating the result reproduces the input exactly. Empty input yields
// no chunks. size must be positive.
func Split(text string, size int) []string {
	if size <= 0 {
		panic("chunk: size must be positive")
	}
	if text == "" {
		return nil
	}

	chunks := make([]string, 0, (len(text)+size-1)/size)
	for i := 0; i < len(text); i += size {
		end := i + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[i:end])
	}
	return chunks
}
