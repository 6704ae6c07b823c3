package softdict

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadAliases calls fn for every (alias, value) pair read from r. Each line
// holds tab-separated fields: an identifier followed by its aliases. Every
// alias is paired with the identifier. Blank lines and empty aliases are
// skipped. It returns the number of pairs passed to fn.
func ReadAliases(r io.Reader, fn func(alias, value string) error) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var n, line int
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		for _, alias := range fields[1:] {
			if alias == "" {
				continue
			}
			if err := fn(alias, fields[0]); err != nil {
				return n, fmt.Errorf("line %d: %w", line, err)
			}
			n++
		}
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("reading aliases: %w", err)
	}
	return n, nil
}

// LoadAliases puts every pair ReadAliases finds in r.
func (d *Dictionary) LoadAliases(r io.Reader) (int, error) {
	return ReadAliases(r, d.Put)
}

// LoadAliasFile is LoadAliases over the named file.
func (d *Dictionary) LoadAliasFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening alias file: %w", err)
	}
	defer f.Close()
	n, err := d.LoadAliases(f)
	if err != nil {
		return n, fmt.Errorf("loading %s: %w", path, err)
	}
	d.logger.Info("aliases loaded", "path", path, "pairs", n, "keys", len(d.keys))
	return n, nil
}
