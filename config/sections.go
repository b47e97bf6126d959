package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v2"
)

// sections holds raw config values keyed by upper case section then upper case key.
type sections map[string]map[string]string

func (s sections) set(section, key, value string) {
	section = strings.ToUpper(strings.TrimSpace(section))
	key = strings.ToUpper(strings.TrimSpace(key))
	if _, ok := s[section]; !ok {
		s[section] = make(map[string]string)
	}
	s[section][key] = unquote(strings.TrimSpace(value))
}

func (s sections) toMap() map[string]interface{} {
	m := make(map[string]interface{}, len(s))
	for k, v := range s {
		inner := make(map[string]interface{}, len(v))
		for ik, iv := range v {
			inner[ik] = iv
		}
		m[k] = inner
	}
	return m
}

// unquote removes one pair of matching surrounding quotes, which people tend to add to INI values.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// readSections loads the file at path as YAML or JSON when the extension says so, else as INI.
func readSections(path string) (sections, error) {
	if !fileExists(path) {
		return nil, FileNotFoundError{name: path}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return readYamlSections(path)
	default:
		return readIniSections(path)
	}
}

func readIniSections(path string) (sections, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config file %q", path)
	}
	s := make(sections)
	for _, sec := range f.Sections() {
		for _, k := range sec.Keys() {
			s.set(sec.Name(), k.Name(), k.Value())
		}
	}
	return s, nil
}

func readYamlSections(path string) (sections, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config file %q", path)
	}
	data := make(map[string]map[string]interface{})
	if err := yaml.Unmarshal(b, &data); err != nil {
		return nil, errors.Wrapf(err, "error parsing config file %q", path)
	}
	s := make(sections)
	for section, keys := range data {
		for k, v := range keys {
			if v == nil {
				continue
			}
			s.set(section, k, strings.TrimSpace(toString(v)))
		}
	}
	return s, nil
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	default:
		b, err := yaml.Marshal(x)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(b))
	}
}
