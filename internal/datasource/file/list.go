package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadList reads an input list: one local path or http(s) URL per line.
// Blank lines and '#' comments, whole-line or trailing after whitespace, are
// ignored. Relative paths resolve against the list file's directory, and a
// repeated entry keeps only its first position.
func ReadList(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read list %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	seen := make(map[string]bool)
	var out []string
	for _, line := range strings.Split(string(b), "\n") {
		entry := listEntry(line)
		if entry == "" {
			continue
		}
		if !isURL(entry) && entry != "-" && !filepath.IsAbs(entry) {
			entry = filepath.Join(dir, entry)
		}
		if seen[entry] {
			continue
		}
		seen[entry] = true
		out = append(out, entry)
	}
	return out, nil
}

// listEntry strips comments and surrounding space from one list line.
func listEntry(line string) string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#") {
		return ""
	}
	for i := 1; i < len(line); i++ {
		if line[i] == '#' && (line[i-1] == ' ' || line[i-1] == '\t') {
			return strings.TrimSpace(line[:i])
		}
	}
	return line
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
