// Package discovery finds SQLite database files below a directory.
package discovery

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/runnerr0/browser-defrag/internal/logging"
)

// sqliteHeader is the 16-byte magic string at offset 0 of every SQLite 3
// database file. See https://www.sqlite.org/fileformat.html.
var sqliteHeader = []byte("SQLite format 3\x00")

// IsDatabaseFile reports whether the first 16 bytes of the file at path are
// the SQLite 3 header. Unreadable, short, or non-UTF-8 files are not
// databases; the reason is logged at debug level and never returned.
func IsDatabaseFile(path string) bool {
	header, err := readHeader(path)
	if err != nil {
		logging.L().Debug("not a database file", zap.String("path", path), zap.Error(err))
		return false
	}
	if !utf8.Valid(header) {
		logging.L().Debug("header is not valid UTF-8", zap.String("path", path), zap.Binary("header", header))
		return false
	}
	return bytes.Equal(header, sqliteHeader)
}

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, len(sqliteHeader))
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	return header, nil
}
