// Package source provides the documents fed to the indexer: an ordered list
// of locations and a way to open each one.
package source

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordindex/pkg/errors"
	applog "github.com/Adithya-Monish-Kumar-K/wordindex/pkg/logger"
)

// Source is an ordered, fixed list of documents.
type Source interface {
	// Locations returns every document location in a stable order. The
	// position of a location is its document id.
	Locations() []string
	// Open returns the contents of the document at location.
	Open(location string) (io.ReadCloser, error)
}

// Directory is a Source over every regular file below a root directory.
type Directory struct {
	root      string
	locations []string
}

// Discover walks root recursively and collects regular files in lexical
// order. Entries that cannot be read during the walk are logged and skipped.
func Discover(root string) (*Directory, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.KindConfiguration,
			"document root: %v", err)
	}
	if !info.IsDir() {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.KindConfiguration,
			"document root %s is not a directory", root)
	}

	logger := applog.WithComponent("source")
	var locations []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			locations = append(locations, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking document root %s: %w", root, err)
	}
	sort.Strings(locations)
	logger.Info("documents discovered", "root", root, "count", len(locations))
	return &Directory{root: root, locations: locations}, nil
}

func (d *Directory) Locations() []string {
	return d.locations
}

func (d *Directory) Open(location string) (io.ReadCloser, error) {
	return os.Open(location)
}

// Memory is an in-memory Source. Documents listed in Missing are reported in
// Locations but fail to open.
type Memory struct {
	Names   []string
	Texts   map[string]string
	Missing map[string]bool
}

// NewMemory builds a Memory source from (name, text) pairs in order.
func NewMemory(pairs ...[2]string) *Memory {
	m := &Memory{Texts: make(map[string]string, len(pairs))}
	for _, p := range pairs {
		m.Names = append(m.Names, p[0])
		m.Texts[p[0]] = p[1]
	}
	return m
}

func (m *Memory) Locations() []string {
	return m.Names
}

func (m *Memory) Open(location string) (io.ReadCloser, error) {
	if m.Missing[location] {
		return nil, fmt.Errorf("open %s: %w", location, fs.ErrNotExist)
	}
	text, ok := m.Texts[location]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", location, fs.ErrNotExist)
	}
	return io.NopCloser(strings.NewReader(text)), nil
}
