package httpds

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// filenameCleaner replaces sequences of non-alphanumeric characters with "_".
var filenameCleaner = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// HashString returns the SHA1 hex digest of s.
func HashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

// FilenameFromURL names a download. The last path segment wins when it has
// an extension; otherwise the cleaned query string, then a hash of the whole
// URL, is used with ".csv" appended.
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return HashString(rawURL) + ".csv"
	}
	if base := path.Base(u.Path); path.Ext(base) != "" {
		return base
	}
	clean := strings.Trim(filenameCleaner.ReplaceAllString(u.RawQuery, "_"), "_")
	if clean == "" {
		return HashString(rawURL) + ".csv"
	}
	return clean + ".csv"
}
