package catalog

import (
	"crypto/md5"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// DefaultChunkSize is the read size used while hashing. Files are streamed
// chunk by chunk so memory use stays bounded regardless of file size.
const DefaultChunkSize = 8 * 1024

// Hasher computes content hashes by streaming files in fixed-size chunks.
type Hasher struct {
	fs        afero.Fs
	chunkSize int
}

// NewHasher creates a hasher reading from fs. A chunkSize below 1 KiB is
// raised to the default.
func NewHasher(fs afero.Fs, chunkSize int) *Hasher {
	if chunkSize < 1024 {
		chunkSize = DefaultChunkSize
	}
	return &Hasher{fs: fs, chunkSize: chunkSize}
}

// HashFile returns the hex MD5 digest of the file's full content.
// A zero-length file yields the empty-content digest.
func (h *Hasher) HashFile(path string) (string, error) {
	f, err := h.fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	sum := md5.New()
	buf := make([]byte, h.chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			sum.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
	}

	return fmt.Sprintf("%x", sum.Sum(nil)), nil
}
