package staging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	ErrJsonPathsMismatch = errors.New("number of JSONPaths expressions does not match the number of columns")
	ErrUnsupportedPath   = errors.New("unsupported JSONPath expression")
)

type jsonPathsFile struct {
	JsonPaths []string `json:"jsonpaths"`
}

var (
	reBracketPath = regexp.MustCompile(`^\$\[\s*(?:'([^']+)'|"([^"]+)")\s*\]$`)
	reDotPath     = regexp.MustCompile(`^\$\.([A-Za-z_][A-Za-z0-9_]*)$`)
)

// ParseJsonPaths reads a JSONPaths descriptor and returns the top level member named by each expression,
// in order. Both $['name'] and $.name forms are accepted; nested paths and array elements are not.
func ParseJsonPaths(r io.Reader) ([]string, error) {
	f := jsonPathsFile{}
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("error decoding JSONPaths file: %w", err)
	}
	if len(f.JsonPaths) == 0 {
		return nil, errors.New("JSONPaths file has no expressions")
	}
	retval := make([]string, len(f.JsonPaths))
	for i, p := range f.JsonPaths {
		p = strings.TrimSpace(p)
		if m := reBracketPath.FindStringSubmatch(p); m != nil {
			retval[i] = m[1] + m[2]
			continue
		}
		if m := reDotPath.FindStringSubmatch(p); m != nil {
			retval[i] = m[1]
			continue
		}
		return nil, fmt.Errorf("%w at position %v: %q", ErrUnsupportedPath, i, p)
	}
	return retval, nil
}

// checkJsonPaths returns ErrJsonPathsMismatch unless there is one path per column.
func checkJsonPaths(paths []string, columns int) error {
	if len(paths) != columns {
		return fmt.Errorf("%w: %v paths for %v columns", ErrJsonPathsMismatch, len(paths), columns)
	}
	return nil
}
