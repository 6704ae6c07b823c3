// Package snapshot writes and loads dictionary snapshot files and
// fingerprints them, so caches can key results by the snapshot they came
// from.
package snapshot

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict"
)

// Info describes a snapshot file.
type Info struct {
	Path        string `json:"path"`
	Fingerprint string `json:"fingerprint"`
	Size        int64  `json:"size"`
	Keys        int    `json:"keys"`
	Vocabulary  int    `json:"vocabulary"`
}

// Write saves a frozen dictionary to path and fingerprints the result.
func Write(d *softdict.Dictionary, path string) (Info, error) {
	if err := d.SaveAs(path); err != nil {
		return Info{}, err
	}
	fp, size, err := Fingerprint(path)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Path:        path,
		Fingerprint: fp,
		Size:        size,
		Keys:        d.Len(),
		Vocabulary:  d.Vocabulary(),
	}, nil
}

// Load restores the snapshot at path, hashing the bytes as they are decoded.
func Load(path string, opts ...softdict.Option) (*softdict.Dictionary, Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Info{}, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	h := xxhash.New()
	d, err := softdict.Decode(bufio.NewReader(io.TeeReader(f, h)), opts...)
	if err != nil {
		return nil, Info{}, fmt.Errorf("loading snapshot %s: %w", path, err)
	}
	if _, err := io.Copy(h, f); err != nil {
		return nil, Info{}, fmt.Errorf("hashing snapshot %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		return nil, Info{}, fmt.Errorf("stat snapshot %s: %w", path, err)
	}
	info := Info{
		Path:        path,
		Fingerprint: format(h),
		Size:        st.Size(),
		Keys:        d.Len(),
		Vocabulary:  d.Vocabulary(),
	}
	slog.Default().With("component", "snapshot").Info("snapshot loaded",
		"path", path, "fingerprint", info.Fingerprint, "keys", info.Keys)
	return d, info, nil
}

// Fingerprint returns the xxhash64 of the file at path, in hex, and its size.
func Fingerprint(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()
	h := xxhash.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hashing snapshot %s: %w", path, err)
	}
	return format(h), n, nil
}

func format(h *xxhash.Digest) string {
	return fmt.Sprintf("%016x", h.Sum64())
}
