package edgar

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DebugCache keeps a verbatim copy of every markup handed to the extractor,
// one file per filing: <dir>/<SYMBOL>/<filing_date>.html. It satisfies
// fee.DebugSink.
type DebugCache struct {
	dir string
}

// NewDebugCache creates a cache rooted at dir. The directory is created on
// first write.
func NewDebugCache(dir string) *DebugCache {
	return &DebugCache{dir: dir}
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Path returns the file a filing is cached under.
func (c *DebugCache) Path(symbol, filingDate string) string {
	name := filingDate
	if name == "" {
		name = "undated"
	}
	return filepath.Join(c.dir, pathSegment(strings.ToUpper(symbol), "UNKNOWN"), pathSegment(name, "undated")+".html")
}

// Save stores markup, replacing any earlier copy for the same filing.
func (c *DebugCache) Save(symbol, filingDate, markup string) error {
	path := c.Path(symbol, filingDate)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("debug cache: %w", err)
	}
	return os.WriteFile(path, []byte(markup), 0o644)
}

// Load returns the cached markup of a filing.
func (c *DebugCache) Load(symbol, filingDate string) (string, error) {
	data, err := os.ReadFile(c.Path(symbol, filingDate))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// pathSegment keeps user-supplied names inside the cache root.
func pathSegment(s, fallback string) string {
	s = strings.Trim(unsafePathChars.ReplaceAllString(s, "_"), "._")
	if s == "" {
		return fallback
	}
	return s
}
