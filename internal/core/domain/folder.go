package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// minBareIDLength is the shortest trailing path segment accepted as a
// folder id when the URL has no recognisable folder marker.
const minBareIDLength = 25

var (
	folderPathPattern = regexp.MustCompile(`folders/([A-Za-z0-9_-]+)`)
	idParamPattern    = regexp.MustCompile(`[?&]id=([A-Za-z0-9_-]+)`)
	bareIDPattern     = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ParseFolderURL extracts a folder identifier from a shared-folder URL.
// It tries, in order, a "folders/<id>" path, an "id=<id>" query parameter
// and a trailing path segment of at least 25 URL-safe characters.
func ParseFolderURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidFolderURL)
	}

	if m := folderPathPattern.FindStringSubmatch(s); m != nil {
		return m[1], nil
	}
	if m := idParamPattern.FindStringSubmatch(s); m != nil {
		return m[1], nil
	}

	path := s
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	segment := path[strings.LastIndex(path, "/")+1:]
	if len(segment) >= minBareIDLength && bareIDPattern.MatchString(segment) {
		return segment, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidFolderURL, raw)
}
