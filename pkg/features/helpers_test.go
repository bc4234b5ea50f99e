package features

import "os"

// writeJunk replaces a file's contents with bytes that are long enough to
// parse as a header but carry the wrong magic.
func writeJunk(path string) error {
	junk := make([]byte, headerSize)
	for i := range junk {
		junk[i] = 0xAB
	}
	return os.WriteFile(path, junk, 0o644)
}
