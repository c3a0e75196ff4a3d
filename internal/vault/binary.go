package vault

import (
	"bytes"
	"io"
	"os"
	"unicode/utf8"
)

const (
	maxClassifiableSize = 10 << 20 // files above this are treated as binary
	fullValidateSize    = 1 << 20  // full UTF-8 validation up to this size
	sniffLen            = 512
)

// IsBinary classifies the file at abs as text or binary. Checks run
// cheapest first and short-circuit: size threshold, NUL byte in the first
// 512 bytes, then UTF-8 validation (the whole file when small enough,
// otherwise only the already-read prefix). I/O errors classify as binary.
//
// A missing or non-regular file is reported as text; callers check
// existence separately.
func IsBinary(abs string) bool {
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if info.Size() > maxClassifiableSize {
		return true
	}

	f, err := os.Open(abs)
	if err != nil {
		return true
	}
	defer f.Close()

	chunk := make([]byte, sniffLen)
	n, err := f.Read(chunk)
	if err != nil && err != io.EOF {
		return true
	}
	chunk = chunk[:n]

	if bytes.IndexByte(chunk, 0) >= 0 {
		return true
	}

	if info.Size() <= fullValidateSize {
		rest, err := io.ReadAll(f)
		if err != nil {
			return true
		}
		return !utf8.Valid(append(chunk, rest...))
	}
	// Large file: the prefix is the only part we validate. A rune cut by
	// the 512-byte boundary counts as invalid; coarse, but cheap.
	return !utf8.Valid(chunk)
}
