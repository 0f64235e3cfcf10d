package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"

	"github.com/xenking/online-nursery/db"
	"github.com/xenking/online-nursery/internal/domain/product"
)

type catalog struct {
	Categories []product.Category `json:"categories"`
	Products   []product.Product  `json:"products"`
}

// readCatalog reads and validates a seed catalog. Files ending in .gz are
// decompressed; an empty path selects the embedded catalog.
func readCatalog(path string) (*catalog, error) {
	var r io.Reader = bytes.NewReader(db.Seed)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open seed file")
		}
		defer func() { _ = f.Close() }()
		r = f

		if strings.HasSuffix(path, ".gz") {
			zr, err := pgzip.NewReader(f)
			if err != nil {
				return nil, errors.Wrap(err, "open gzip stream")
			}
			defer func() { _ = zr.Close() }()
			r = zr
		}
	}
	return decodeCatalog(r)
}

func decodeCatalog(r io.Reader) (*catalog, error) {
	var c catalog
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, errors.Wrap(err, "parse seed JSON")
	}

	known := make(map[string]struct{}, len(c.Categories))
	for _, cat := range c.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return nil, errors.New("category without a name")
		}
		known[cat.Name] = struct{}{}
	}
	for i := range c.Products {
		p := &c.Products[i]
		if err := p.Validate(); err != nil {
			return nil, errors.Wrapf(err, "product %d", i)
		}
		if _, ok := known[p.Category]; !ok {
			return nil, errors.Wrapf(product.ErrCategoryNotFound, "product %q: %q", p.Name, p.Category)
		}
	}
	return &c, nil
}
