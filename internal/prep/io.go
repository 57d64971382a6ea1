// Package used for reading tree exports and writing their summaries
package prep

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/jsdoublel/treestat/internal/schema"
)

var (
	ErrInvalidFile   = errors.New("invalid file")
	ErrInvalidFormat = errors.New("invalid format")
	ErrWritingFile   = errors.New("error writing file")
)

const (
	maxLineSize   = 1 << 30 // metadata lines carry the whole mutation catalog
	progressEvery = 10000
)

// Forward-only sequence of the non-blank lines of an input file
type Lines struct {
	name    string
	file    io.Closer // nil when not backed by a file
	gz      *gzip.Reader
	scanner *bufio.Scanner
	line    int
	err     error
}

// Opens path for line by line reading, decompressing it when the file name
// ends in ".gz". The returned Lines must be closed.
func OpenLines(path string) (*Lines, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s, %w", path, err)
	}
	if filepath.Ext(path) != ".gz" {
		lines := NewLines(file, path)
		lines.file = file
		return lines, nil
	}
	gz, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w, %s is not a valid gzip file: %s", ErrInvalidFormat, path, err)
	}
	lines := NewLines(gz, path)
	lines.file = file
	lines.gz = gz
	return lines, nil
}

// Reads lines from r; name is only used in error messages
func NewLines(r io.Reader, name string) *Lines {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Lines{name: name, scanner: scanner}
}

// Returns the next non-blank line (trimmed) and true, or false once the input
// is exhausted or reading failed (see Err). The returned slice is only valid
// until the next call.
func (l *Lines) Next() ([]byte, bool) {
	if l.err != nil {
		return nil, false
	}
	for l.scanner.Scan() {
		l.line++
		line := bytes.TrimSpace(l.scanner.Bytes())
		if len(line) != 0 {
			return line, true
		}
	}
	if err := l.scanner.Err(); err != nil {
		if l.gz != nil || errors.Is(err, bufio.ErrTooLong) {
			l.err = fmt.Errorf("%w, error reading %s after line %d: %w", ErrInvalidFormat, l.name, l.line, err)
		} else {
			l.err = fmt.Errorf("error reading %s after line %d: %w", l.name, l.line, err)
		}
	}
	return nil, false
}

func (l *Lines) Err() error {
	return l.err
}

// 1-based number of the line last returned by Next
func (l *Lines) LineNumber() int {
	return l.line
}

func (l *Lines) Name() string {
	return l.name
}

// Releases the decompressor and the underlying file
func (l *Lines) Close() error {
	var errs []error
	if l.gz != nil {
		errs = append(errs, l.gz.Close())
	}
	if l.file != nil {
		errs = append(errs, l.file.Close())
	}
	return errors.Join(errs...)
}

// Reads the metadata header from the first line
func ReadMetadata(lines *Lines) (*schema.Metadata, error) {
	line, ok := lines.Next()
	if !ok {
		if err := lines.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w, %s is empty", ErrInvalidFile, lines.Name())
	}
	var meta schema.Metadata
	if err := json.Unmarshal(line, &meta); err != nil {
		return nil, fmt.Errorf("%w, error parsing metadata on line %d of %s: %w",
			ErrInvalidFormat, lines.LineNumber(), lines.Name(), err)
	}
	return &meta, nil
}

// Decodes every remaining line as a node record and passes it to fn. Stops at
// the first malformed line or the first error from fn. Returns the number of
// nodes read.
func ReadNodes(lines *Lines, fn func(*schema.Node) error) (int, error) {
	count := 0
	for {
		line, ok := lines.Next()
		if !ok {
			break
		}
		node := new(schema.Node)
		if err := json.Unmarshal(line, node); err != nil {
			return count, fmt.Errorf("%w, error parsing node on line %d of %s: %w",
				ErrInvalidFormat, lines.LineNumber(), lines.Name(), err)
		}
		if err := fn(node); err != nil {
			return count, err
		}
		count++
		if count%progressEvery == 0 {
			log.Printf("processed %d nodes\n", count)
		}
	}
	return count, lines.Err()
}
