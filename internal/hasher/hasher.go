package hasher

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/soyunomas/relinker/internal/entities"
	"github.com/soyunomas/relinker/internal/fault"
	"github.com/soyunomas/relinker/internal/fsid"
)

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 4 * 1024

// Algorithm describes a digest function.
type Algorithm struct {
	Name string
	Size int
	// Cryptographic is false for functions where collisions can be produced on purpose.
	Cryptographic bool
	New           func() hash.Hash
}

var algorithms = map[string]*Algorithm{
	"sha1": {
		Name: "sha1", Size: sha1.Size, Cryptographic: true,
		New: func() hash.Hash { return sha1.New() },
	},
	"sha256": {
		Name: "sha256", Size: sha256.Size, Cryptographic: true,
		New: func() hash.Hash { return sha256.New() },
	},
	"sha512": {
		Name: "sha512", Size: sha512.Size, Cryptographic: true,
		New: func() hash.Hash { return sha512.New() },
	},
	"xxhash": {
		Name: "xxhash", Size: 8, Cryptographic: false,
		New: func() hash.Hash { return xxhash.New() },
	},
}

// Lookup returns the algorithm registered under name.
func Lookup(name string) (*Algorithm, error) {
	alg, ok := algorithms[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported hash algorithm: %s (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return alg, nil
}

// Names lists the registered algorithms in a stable order.
func Names() []string {
	return []string{"sha1", "sha256", "sha512", "xxhash"}
}

// ContentHasher streams files through a digest in fixed-size chunks, so memory
// use does not depend on file size. It is safe for concurrent use.
type ContentHasher struct {
	alg        *Algorithm
	chunkSize  int
	bufferPool sync.Pool
	hashPool   sync.Pool
}

// New builds a hasher for the named algorithm.
func New(algorithm string, chunkSize int) (*ContentHasher, error) {
	alg, err := Lookup(algorithm)
	if err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	h := &ContentHasher{alg: alg, chunkSize: chunkSize}
	h.bufferPool.New = func() any {
		b := make([]byte, chunkSize)
		return &b
	}
	h.hashPool.New = func() any {
		return alg.New()
	}
	return h, nil
}

func (h *ContentHasher) Algorithm() *Algorithm {
	return h.alg
}

// Hash computes the digest of path and returns the identity of the file that
// was actually read. Failures are *fault.Error with code HASH. ctx is checked
// between chunks.
func (h *ContentHasher) Hash(ctx context.Context, path string) (entities.Digest, fsid.Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fsid.Info{}, fault.Hash(path, err)
	}
	defer file.Close()

	info, err := fsid.Fstat(file)
	if err != nil {
		return nil, fsid.Info{}, fault.Hash(path, err)
	}
	if !info.Mode.IsRegular() {
		return nil, info, fault.Hash(path, fmt.Errorf("not a regular file"))
	}

	sum, err := h.digest(ctx, path, file, info.Size)
	if err != nil {
		return nil, info, err
	}
	return sum, info, nil
}

// digest reads r to EOF and fails unless exactly size bytes were read.
func (h *ContentHasher) digest(ctx context.Context, path string, r io.Reader, size int64) (entities.Digest, error) {
	d := h.hashPool.Get().(hash.Hash)
	d.Reset()
	defer h.hashPool.Put(d)

	bufPtr := h.bufferPool.Get().(*[]byte)
	buf := *bufPtr
	defer h.bufferPool.Put(bufPtr)

	var read int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := r.Read(buf)
		if n > 0 {
			_, _ = d.Write(buf[:n])
			read += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fault.Hash(path, err)
		}
	}

	if read != size {
		return nil, fault.Hash(path, fmt.Errorf("size changed while reading: read %d of %d bytes", read, size))
	}

	return d.Sum(nil), nil
}
