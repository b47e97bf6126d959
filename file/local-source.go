package file

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sonofy/dwhpipe/constants"
	"github.com/sonofy/dwhpipe/logger"
)

var ErrFileNotFound = errors.New("file not found")

// LocalSource lists and reads files on the local file system. Keys are file paths.
type LocalSource struct {
	log logger.Logger
}

func NewLocalSource(log logger.Logger) *LocalSource {
	return &LocalSource{log: log}
}

// List returns every regular file whose path starts with prefix, in lexical order.
// A directory prefix lists the whole tree below it and a file prefix returns just that file.
func (s *LocalSource) List(prefix string) ([]string, error) {
	root := prefix
	if info, err := os.Stat(prefix); err == nil {
		if !info.IsDir() {
			return []string{prefix}, nil
		}
	} else if os.IsNotExist(err) { // if the prefix is a partial file name...
		root = filepath.Dir(prefix)
	} else {
		return nil, err
	}
	keys := make([]string, 0)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() && strings.HasPrefix(path, prefix) {
			keys = append(keys, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return keys, nil
		}
		return nil, fmt.Errorf("error listing files below %v: %w", prefix, err)
	}
	sort.Strings(keys)
	s.log.Debug("listed ", len(keys), " files below ", prefix)
	return keys, nil
}

func (s *LocalSource) Open(key string) (io.ReadCloser, error) {
	f, err := os.Open(key)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %v", ErrFileNotFound, key)
	}
	return f, err
}

func (s *LocalSource) Get(key string) ([]byte, error) {
	b, err := ioutil.ReadFile(key)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %v", ErrFileNotFound, key)
	}
	return b, err
}

// ParsePath converts a file:// URL into a local path.
// file:///data/log_data is an absolute path and file://data/log_data is relative.
func ParsePath(fileUrl string) (string, error) {
	u, err := url.Parse(fileUrl)
	if err != nil {
		return "", fmt.Errorf("error parsing file URL: %w", err)
	}
	if u.Scheme != constants.ConnectionTypeFile {
		return "", fmt.Errorf("expected file URL scheme %q but got %q", constants.ConnectionTypeFile, u.Scheme)
	}
	p := u.Host + u.Path
	if p == "" {
		return "", fmt.Errorf("file URL %q has no path", fileUrl)
	}
	return filepath.FromSlash(p), nil
}
