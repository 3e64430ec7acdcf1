package derivatives

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tendant/paged-content-pipeline/internal/repository"
)

type fakeCaps struct {
	available map[Capability]bool
}

func (f fakeCaps) Available(c Capability) bool {
	return f.available[c]
}

func allCaps() fakeCaps {
	return fakeCaps{available: map[Capability]bool{
		CapabilityImage: true,
		CapabilityPDF:   true,
		CapabilityOCR:   true,
	}}
}

func pageObject(withSource bool) *repository.Object {
	obj := &repository.Object{
		PID:         "test:page-1",
		Models:      []string{repository.ModelPage},
		Datastreams: map[string]*repository.Datastream{},
	}
	if withSource {
		obj.Datastreams["OBJ"] = &repository.Datastream{
			ID:       "OBJ",
			MimeType: "image/tiff",
			Content:  []byte("pixels"),
		}
	}
	return obj
}

func TestKindStaticData(t *testing.T) {
	for _, k := range Kinds {
		require.True(t, k.Valid())
		require.Equal(t, "OBJ", k.Source())
	}
	require.Equal(t, CapabilityPDF, KindPDF.Capability())
	require.Equal(t, CapabilityOCR, KindOCR.Capability())
	require.Equal(t, CapabilityOCR, KindHOCR.Capability())
	require.Equal(t, CapabilityImage, KindTN.Capability())
	require.False(t, Kind("DC").Valid())
}

func TestCanDeriveMatrix(t *testing.T) {
	cfg := &Config{}
	cfg.WithDefaults()

	tests := []struct {
		name string
		obj  *repository.Object
		caps fakeCaps
		want bool
	}{
		{
			name: "all preconditions met",
			obj:  pageObject(true),
			caps: allCaps(),
			want: true,
		},
		{
			name: "missing source datastream",
			obj:  pageObject(false),
			caps: allCaps(),
			want: false,
		},
		{
			name: "backend not installed",
			obj:  pageObject(true),
			caps: fakeCaps{available: map[Capability]bool{}},
			want: false,
		},
		{
			name: "unrecognized object type",
			obj: &repository.Object{
				PID:    "test:audio-1",
				Models: []string{"audio:recording"},
				Datastreams: map[string]*repository.Datastream{
					"OBJ": {ID: "OBJ", MimeType: "image/tiff"},
				},
			},
			caps: allCaps(),
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewResolver(tt.caps, cfg)
			require.Equal(t, tt.want, resolver.CanDerive(tt.obj, KindPDF))
		})
	}
}

func TestCanDeriveRespectsEnabledKinds(t *testing.T) {
	cfg := &Config{EnabledKinds: []Kind{KindTN}}
	cfg.WithDefaults()
	resolver := NewResolver(allCaps(), cfg)

	obj := pageObject(true)
	require.False(t, resolver.CanDerive(obj, KindPDF))
	require.True(t, resolver.CanDerive(obj, KindTN))
}

func TestCanDeriveInvalidKind(t *testing.T) {
	cfg := &Config{}
	cfg.WithDefaults()
	resolver := NewResolver(allCaps(), cfg)
	require.False(t, resolver.CanDerive(pageObject(true), Kind("DC")))
}

func TestExtensionForMime(t *testing.T) {
	require.Equal(t, ".tif", ExtensionForMime("image/tiff"))
	require.Equal(t, ".jp2", ExtensionForMime("image/jp2"))
	require.Equal(t, ".pdf", ExtensionForMime("application/pdf"))
	require.Equal(t, ".bin", ExtensionForMime("application/x-unheard-of"))
}

func TestMaterializeSource(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{TempDir: t.TempDir()}
	cfg.WithDefaults()

	store := repository.NewMemoryStore()
	obj := pageObject(true)
	store.AddObject(obj)

	resolver := NewResolver(allCaps(), cfg)
	mat := NewMaterializer(store, resolver, cfg)

	path, err := mat.MaterializeSource(ctx, obj, KindPDF)
	require.NoError(t, err)
	defer os.Remove(path)

	require.Equal(t, "test_page-1_OBJ.tif", filepath.Base(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("pixels"), content)
}

func TestMaterializeSourceGuardedByEligibility(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{TempDir: t.TempDir()}
	cfg.WithDefaults()

	store := repository.NewMemoryStore()
	obj := pageObject(false)
	store.AddObject(obj)

	mat := NewMaterializer(store, NewResolver(allCaps(), cfg), cfg)

	_, err := mat.MaterializeSource(ctx, obj, KindPDF)
	require.ErrorIs(t, err, ErrNotDerivable)

	entries, err := os.ReadDir(cfg.TempDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.WithDefaults()

	require.Equal(t, "convert", cfg.ConvertPath)
	require.Equal(t, "gs", cfg.PDFMergePath)
	require.Equal(t, "tesseract", cfg.TesseractPath)
	require.Equal(t, PersistAlways, cfg.SettingsPersistence)
	require.NotEmpty(t, cfg.TempDir)
	require.True(t, cfg.Enabled(KindPDF))
}
