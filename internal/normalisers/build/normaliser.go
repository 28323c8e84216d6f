package build

import (
	"context"
	"fmt"

	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driven"
	"github.com/custodia-labs/buildboard/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// User-data keys read into Build fields. All other keys are copied to
// Build.Extensions.
const (
	keyProduct     = "product"
	keyFullVersion = "fullversion"
	keyVersion     = "version"
	keyArch        = "arch"
	keyLicense     = "license"
	keyManifest    = "manifest"
)

var knownKeys = map[string]struct{}{
	keyProduct:     {},
	keyFullVersion: {},
	keyVersion:     {},
	keyArch:        {},
	keyLicense:     {},
	keyManifest:    {},
}

// Normaliser derives builds from artifact metadata records.
// Only JSON records carrying the configured product marker are builds.
type Normaliser struct {
	product string
}

// New creates a build normaliser for product.
// An empty product selects domain.DefaultProduct.
func New(product string) *Normaliser {
	if product == "" {
		product = domain.DefaultProduct
	}
	return &Normaliser{product: product}
}

// Product returns the product marker records must carry.
func (n *Normaliser) Product() string {
	return n.product
}

// Normalise converts a raw record into a build.
// Attributes that cannot be extracted are left unset; a build without a
// full version is a problem build, not an error.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawRecord) (*domain.Build, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if raw.Type != domain.RecordTypeJSON {
		return nil, fmt.Errorf("%w: %s has type %q", domain.ErrRejected, raw.ID, raw.Type)
	}
	if product := raw.String(keyProduct); product != n.product {
		return nil, fmt.Errorf("%w: %s has product %q", domain.ErrRejected, raw.ID, product)
	}

	b := &domain.Build{
		ID:           raw.ID,
		Product:      n.product,
		SizeBytes:    raw.Length,
		ModifiedAt:   raw.Modified,
		Architecture: raw.String(keyArch),
		License:      raw.String(keyLicense),
		FullVersion:  raw.String(keyFullVersion),
		Version:      raw.String(keyVersion),
	}

	if filename, ok := ParseFilename(raw.ID); ok {
		b.Filename = filename
		n.classify(b)
		if toy, ok := ParseToyVariant(filename); ok {
			b.ToyVariant = toy
		}
	} else {
		logger.Debug("No filename in %s", raw.ID)
	}

	if b.FullVersion == "" && b.Filename != "" {
		if fv, ok := ParseFullVersion(b.Filename); ok {
			b.FullVersion = fv
		} else {
			logger.Debug("No full version in %s", b.Filename)
		}
	}
	if b.Version == "" && b.FullVersion != "" {
		if v, ok := ParseVersion(b.FullVersion); ok {
			b.Version = v
		}
	}

	for k, v := range raw.UserData {
		if _, known := knownKeys[k]; known {
			continue
		}
		if b.Extensions == nil {
			b.Extensions = make(map[string]any)
		}
		b.Extensions[k] = v
	}

	return b, nil
}

// classify fills the extension-derived fields.
func (n *Normaliser) classify(b *domain.Build) {
	ext, ok := ParseExtension(b.Filename)
	if !ok {
		logger.Debug("No extension in %s", b.Filename)
		return
	}
	b.Extension = ext

	if os, ok := ClassifyOS(ext, b.Filename); ok {
		b.OS = os
	}
}
