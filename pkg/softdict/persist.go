package softdict

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	apperrors "github.com/Adithya-Monish-Kumar-K/softdict/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict/weight"
)

// File layout, all integers little-endian, strings as uint32 length + bytes:
//
//	magic "SDCT" | version | profile
//	min token similarity f64 | window i32 | max inverted index size i32
//	entry count, then key | value count | values...
//	token count, then token values in id order
//	per token: document frequency, then the collection size
//	per token: max weight f64
//	per token: near-duplicate count | token values
//	per token: postings count | keys
//	crc32 (IEEE) of everything above
const (
	MagicBytes    uint32 = 0x54434453
	FormatVersion uint32 = 1
)

// SaveAs freezes the dictionary if needed and writes it to path. The file is
// written next to path and renamed into place. Only dictionaries built with
// the default tokenizer, weight model and similarities can be saved.
func (d *Dictionary) SaveAs(path string) error {
	if !d.persistable() {
		return fmt.Errorf("saving profile %q: %w", d.profile(), apperrors.ErrFormat)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating dictionary directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp dictionary file: %w", err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := d.WriteTo(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing dictionary file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing dictionary file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing dictionary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming dictionary file: %w", err)
	}
	d.logger.Info("dictionary saved", "path", path, "keys", len(d.keys), "vocabulary", d.tokens.Len())
	return nil
}

// WriteTo freezes the dictionary if needed and encodes it to w.
func (d *Dictionary) WriteTo(w io.Writer) (int64, error) {
	if !d.persistable() {
		return 0, fmt.Errorf("encoding profile %q: %w", d.profile(), apperrors.ErrFormat)
	}
	d.Freeze()

	h := crc32.NewIEEE()
	e := &encoder{w: io.MultiWriter(w, h)}

	e.u32(MagicBytes)
	e.u32(FormatVersion)
	e.str(d.profile())
	e.f64(d.cfg.MinTokenSimilarity)
	e.i32(d.cfg.WindowSize)
	e.i32(d.cfg.MaxInvertedIndexSize)

	e.u32(uint32(len(d.keys)))
	for _, key := range d.keys {
		e.str(key)
		vals := d.values[key]
		e.u32(uint32(len(vals)))
		for _, v := range vals {
			e.str(v)
		}
	}

	tokens := d.tokens.ByID()
	e.u32(uint32(len(tokens)))
	for _, tok := range tokens {
		e.str(tok.Value)
	}
	for _, tok := range tokens {
		e.u32(uint32(d.model.DocumentFrequency(tok.Value)))
	}
	e.u32(uint32(d.model.CollectionSize()))
	for _, tok := range tokens {
		e.f64(d.maxWeight[tok.ID])
	}
	for _, tok := range tokens {
		similar := d.similar[tok.ID]
		e.u32(uint32(len(similar)))
		for _, n := range similar {
			e.str(d.tokens.Get(n.id).Value)
		}
	}
	for _, tok := range tokens {
		postings := d.postings[tok.ID]
		e.u32(uint32(len(postings)))
		for _, key := range postings {
			e.str(key)
		}
	}
	if e.err != nil {
		return e.n, fmt.Errorf("writing dictionary: %w", e.err)
	}

	var sum [4]byte
	binary.LittleEndian.PutUint32(sum[:], h.Sum32())
	n, err := w.Write(sum[:])
	e.n += int64(n)
	if err != nil {
		return e.n, fmt.Errorf("writing checksum: %w", err)
	}
	return e.n, nil
}

// Restore reads a dictionary written by SaveAs. The result is frozen and
// ready for lookups without running Freeze. Options may attach a logger or
// an observer, or pick a bound merge; asking for any collaborator other
// than the defaults fails with ErrFormat.
func Restore(path string, opts ...Option) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary file: %w", err)
	}
	defer f.Close()
	d, err := Decode(bufio.NewReader(f), opts...)
	if err != nil {
		return nil, fmt.Errorf("restoring %s: %w", path, err)
	}
	d.logger.Info("dictionary restored", "path", path, "keys", len(d.keys), "vocabulary", d.tokens.Len())
	return d, nil
}

// Decode reads a dictionary encoded by WriteTo.
func Decode(r io.Reader, opts ...Option) (*Dictionary, error) {
	h := crc32.NewIEEE()
	dec := &decoder{r: io.TeeReader(r, h)}

	if magic := dec.u32("magic"); dec.err == nil && magic != MagicBytes {
		return nil, fmt.Errorf("%w: bad magic bytes %x", apperrors.ErrCorrupt, magic)
	}
	if version := dec.u32("version"); dec.err == nil && version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", apperrors.ErrCorrupt, version)
	}
	profile := dec.str("profile")
	if dec.err != nil {
		return nil, dec.err
	}
	if profile != defaultProfile() {
		return nil, fmt.Errorf("file profile %q: %w", profile, apperrors.ErrFormat)
	}

	cfg := DefaultConfig()
	cfg.MinTokenSimilarity = dec.f64("min token similarity")
	cfg.WindowSize = dec.i32("window size")
	cfg.MaxInvertedIndexSize = dec.i32("max inverted index size")
	if dec.err != nil {
		return nil, dec.err
	}
	d, err := New(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrCorrupt, err)
	}
	if !d.persistable() {
		return nil, fmt.Errorf("restoring with profile %q: %w", d.profile(), apperrors.ErrFormat)
	}

	entries := dec.count("entry count")
	d.keys = make([]string, 0, min(entries, maxPrealloc))
	for i := 0; i < entries && dec.err == nil; i++ {
		key := dec.str("key")
		nvals := dec.count("value count")
		if dec.err == nil && nvals == 0 {
			dec.corrupt("key %q has no values", key)
		}
		if _, dup := d.values[key]; dec.err == nil && dup {
			dec.corrupt("duplicate key %q", key)
		}
		vals := make([]string, 0, min(nvals, maxPrealloc))
		for j := 0; j < nvals && dec.err == nil; j++ {
			vals = append(vals, dec.str("value"))
		}
		d.keys = append(d.keys, key)
		d.values[key] = vals
	}

	ntokens := dec.count("token count")
	for i := 0; i < ntokens && dec.err == nil; i++ {
		value := dec.str("token")
		if tok := d.tokens.Intern(value); dec.err == nil && tok.ID != i+1 {
			dec.corrupt("duplicate token %q", value)
		}
	}
	if dec.err != nil {
		return nil, dec.err
	}
	tokens := d.tokens.ByID()
	for _, tok := range tokens {
		d.model.SetDocumentFrequency(tok.Value, int(dec.u32("document frequency")))
	}
	d.model.SetCollectionSize(int(dec.u32("collection size")))

	size := d.tokens.MaxID() + 1
	d.maxWeight = make([]float64, size)
	for _, tok := range tokens {
		d.maxWeight[tok.ID] = dec.f64("max weight")
	}

	d.similar = make([][]neighbor, size)
	for _, tok := range tokens {
		n := dec.count("near-duplicate count")
		for j := 0; j < n && dec.err == nil; j++ {
			value := dec.str("near-duplicate")
			other, ok := d.tokens.Lookup(value)
			if dec.err == nil && !ok {
				dec.corrupt("near-duplicate %q of %q is not a known token", value, tok.Value)
			}
			d.similar[tok.ID] = append(d.similar[tok.ID], neighbor{
				id:  other.ID,
				sim: d.tokenSim.Similarity(tok.Value, value),
			})
		}
	}

	d.postings = make([][]string, size)
	for _, tok := range tokens {
		n := dec.count("postings count")
		for j := 0; j < n && dec.err == nil; j++ {
			key := dec.str("posting")
			if _, ok := d.values[key]; dec.err == nil && !ok {
				dec.corrupt("posting %q of %q is not a stored key", key, tok.Value)
			}
			d.postings[tok.ID] = append(d.postings[tok.ID], key)
		}
	}
	if dec.err != nil {
		return nil, dec.err
	}

	want := h.Sum32()
	var sum [4]byte
	if _, err := io.ReadFull(r, sum[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("%w: reading checksum: %w", apperrors.ErrCorrupt, err)
	}
	if got := binary.LittleEndian.Uint32(sum[:]); got != want {
		return nil, fmt.Errorf("%w: checksum mismatch: stored %08x, computed %08x", apperrors.ErrCorrupt, got, want)
	}

	d.vectors = make(map[string]weight.Vector, len(d.keys))
	for _, key := range d.keys {
		d.vectors[key] = d.model.Vector(d.tokenizer.Tokenize(key))
	}
	d.sorted = d.tokens.Sorted()
	d.frozen = true
	return d, nil
}
