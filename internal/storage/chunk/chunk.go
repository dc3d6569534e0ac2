// Package chunk splits a byte stream into fixed-size chunks for block uploads.
package chunk

import (
	"errors"
	"io"
	"iter"
)

// DefaultSize is the chunk size used when none is configured (4 MiB).
const DefaultSize = 1 << 22

var (
	// ErrInvalidSize is returned when the chunk size is not positive.
	ErrInvalidSize = errors.New("chunk size must be positive")
	// ErrConsumed is returned when a sequence is ranged over a second time.
	ErrConsumed = errors.New("chunk sequence already consumed")
)

// Read returns a lazy sequence of consecutive chunks of r, each size bytes
// long except possibly the last one. Chunks never overlap and leave no gaps.
// The sequence ends at EOF; a read error is yielded once and ends it too.
//
// The yielded slice is reused: it is only valid until the next iteration.
// The sequence can be ranged over once.
func Read(r io.Reader, size int) iter.Seq2[[]byte, error] {
	consumed := false

	return func(yield func([]byte, error) bool) {
		if consumed {
			yield(nil, ErrConsumed)
			return
		}

		consumed = true

		if size <= 0 {
			yield(nil, ErrInvalidSize)
			return
		}

		buf := make([]byte, size)

		for {
			n, err := io.ReadFull(r, buf)

			switch {
			case err == nil:
				if !yield(buf[:n], nil) {
					return
				}
			case errors.Is(err, io.ErrUnexpectedEOF):
				yield(buf[:n], nil)
				return
			case errors.Is(err, io.EOF):
				return
			default:
				yield(nil, err)
				return
			}
		}
	}
}

// Count returns how many chunks of chunkSize cover total bytes.
func Count(total int64, chunkSize int) int64 {
	if total <= 0 || chunkSize <= 0 {
		return 0
	}

	size := int64(chunkSize)

	return (total + size - 1) / size
}
