package sysprop

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-ctap/halbridge/internal/errmsg"
)

// File is a Reader backed by a build.prop formatted file. The file is parsed
// again whenever its size or modification time changes. A missing file reads
// as an empty property set.
type File struct {
	Path   string
	Logger *slog.Logger

	mu      sync.Mutex
	modTime time.Time
	size    int64
	props   map[string]string
}

// NewFile returns a File and performs the initial load. Only I/O and syntax
// problems are reported; a missing file is not an error.
func NewFile(path string, logger *slog.Logger) (*File, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f := &File{Path: path, Logger: logger}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.reload(); err != nil {
		return nil, err
	}

	return f, nil
}

func (f *File) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.reload(); err != nil {
		// Keep serving the last good snapshot.
		f.logger().Warn("cannot reload properties", "path", f.Path, "error", err)
	}

	v, ok := f.props[key]
	return v, ok
}

func (f *File) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}

func (f *File) reload() error {
	info, err := os.Stat(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		f.props = map[string]string{}
		f.modTime, f.size = time.Time{}, 0
		return nil
	}
	if err != nil {
		return err
	}

	if f.props != nil && info.ModTime().Equal(f.modTime) && info.Size() == f.size {
		return nil
	}

	file, err := os.Open(f.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = file.Close()
	}()

	props, err := Parse(file)
	if err != nil {
		return fmt.Errorf("cannot parse %s: %w", f.Path, err)
	}

	f.props = props
	f.modTime = info.ModTime()
	f.size = info.Size()

	return nil
}

// Parse reads "key=value" lines. Blank lines and lines starting with '#' are
// skipped, later assignments override earlier ones and "import" directives
// are ignored.
func Parse(r io.Reader) (map[string]string, error) {
	props := make(map[string]string)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "import ") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, errmsg.New(ErrSyntax, fmt.Sprintf("line %d: missing '='", lineNo))
		}

		key = strings.TrimSpace(key)
		if key == "" {
			return nil, errmsg.New(ErrSyntax, fmt.Sprintf("line %d: empty key", lineNo))
		}

		props[key] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return props, nil
}
