package fsutil

import (
	"crypto/md5" //nolint:gosec // catalog checksums are MD5, not a security boundary
	"encoding/hex"
	"hash/crc32"
	"io"
	"os"
)

// CRC32File computes the IEEE CRC-32 checksum of the contents of path.
func CRC32File(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	h := crc32.NewIEEE()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}

// MD5File computes the hex-encoded MD5 checksum of the contents of path.
func MD5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := md5.New() //nolint:gosec // see package comment
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
