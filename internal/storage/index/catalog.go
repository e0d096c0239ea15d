package index

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/KilimcininKorOglu/obaidx/internal/storage"
)

// CatalogFile is the catalog's file name inside the data directory.
const CatalogFile = "catalog.yaml"

// catalog is the on-disk list of indexes.
type catalog struct {
	Version int            `yaml:"version"`
	Indexes []catalogEntry `yaml:"indexes"`
}

type catalogEntry struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	File string `yaml:"file"`
}

const catalogVersion = 1

// loadCatalog reads the catalog in dir. A missing file is an empty catalog.
func loadCatalog(dir string) (*catalog, error) {
	data, err := os.ReadFile(filepath.Join(dir, CatalogFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &catalog{Version: catalogVersion}, nil
		}
		return nil, errors.Wrap(err, "failed to read index catalog")
	}

	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to parse index catalog"), storage.ErrCorrupted)
	}
	if c.Version != catalogVersion {
		return nil, errors.Wrapf(storage.ErrCorrupted, "unsupported catalog version %d", c.Version)
	}
	return &c, nil
}

// save writes the catalog atomically through a temporary file.
func (c *catalog) save(dir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to encode index catalog")
	}

	path := filepath.Join(dir, CatalogFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write index catalog")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "failed to replace index catalog")
	}
	return nil
}
