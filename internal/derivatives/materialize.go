package derivatives

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/paged-content-pipeline/internal/repository"
)

// ErrNotDerivable is returned when eligibility fails for a requested kind
var ErrNotDerivable = errors.New("derivative not derivable for object")

// extensionByMime maps the repository's common MIME types to file
// extensions for staged sources. Unknown types fall back to the stdlib
// mime database, then to .bin.
var extensionByMime = map[string]string{
	"image/tiff":      ".tif",
	"image/jpeg":      ".jpg",
	"image/jp2":       ".jp2",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
	"text/plain":      ".txt",
	"text/html":       ".html",
	"application/xml": ".xml",
}

// ExtensionForMime returns a file extension (with leading dot) for the MIME type
func ExtensionForMime(mimeType string) string {
	if ext, ok := extensionByMime[mimeType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// Materializer copies datastream content to local temporary files for
// external tools to consume. Callers own deletion of returned paths.
type Materializer struct {
	store    repository.Store
	resolver *Resolver
	tempDir  string
}

// NewMaterializer creates a source materializer
func NewMaterializer(store repository.Store, resolver *Resolver, cfg *Config) *Materializer {
	return &Materializer{
		store:    store,
		resolver: resolver,
		tempDir:  cfg.TempDir,
	}
}

// MaterializeSource stages the source datastream for the given derivative
// kind and returns the file path. Fails when CanDerive is false for the kind.
func (m *Materializer) MaterializeSource(ctx context.Context, obj *repository.Object, kind Kind) (string, error) {
	if !m.resolver.CanDerive(obj, kind) {
		return "", fmt.Errorf("%s for %s: %w", kind, obj.PID, ErrNotDerivable)
	}
	return m.MaterializeDatastream(ctx, obj, kind.Source())
}

// MaterializeDatastream stages an arbitrary datastream's bytes to a local
// temporary file. The file name is derived from the object PID, the
// datastream id, and an extension inferred from its MIME type, so concurrent
// workers materializing different pages never collide.
func (m *Materializer) MaterializeDatastream(ctx context.Context, obj *repository.Object, dsid string) (string, error) {
	ds, ok := obj.Datastreams[dsid]
	if !ok {
		return "", fmt.Errorf("datastream %s/%s: %w", obj.PID, dsid, repository.ErrNotFound)
	}

	reader, err := m.store.ReadDatastream(ctx, obj.PID, dsid)
	if err != nil {
		return "", fmt.Errorf("failed to read datastream %s/%s: %w", obj.PID, dsid, err)
	}
	defer reader.Close()

	name := safePID(obj.PID) + "_" + dsid + ExtensionForMime(ds.MimeType)
	path := filepath.Join(m.tempDir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to stage datastream content: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return path, nil
}

func safePID(pid string) string {
	return strings.NewReplacer(":", "_", "/", "_").Replace(pid)
}
