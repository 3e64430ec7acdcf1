package pdf

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tendant/paged-content-pipeline/internal/derivatives"
	"github.com/tendant/paged-content-pipeline/internal/repository"
	"github.com/tendant/paged-content-pipeline/internal/shell"
)

type fakeCaps struct{}

func (fakeCaps) Available(derivatives.Capability) bool { return true }

// fakeRunner records invocations and delegates behavior to handle
type fakeRunner struct {
	commands []string
	handle   func(name string, args []string) *shell.Result
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (*shell.Result, error) {
	f.commands = append(f.commands, strings.Join(append([]string{name}, args...), " "))
	if f.handle != nil {
		return f.handle(name, args), nil
	}
	return &shell.Result{}, nil
}

func newTestPipeline(t *testing.T, runner shell.Runner) (*Pipeline, *repository.MemoryStore, *derivatives.Config) {
	t.Helper()
	cfg := &derivatives.Config{TempDir: t.TempDir()}
	cfg.WithDefaults()

	store := repository.NewMemoryStore()
	resolver := derivatives.NewResolver(fakeCaps{}, cfg)
	mat := derivatives.NewMaterializer(store, resolver, cfg)
	return New(store, mat, runner, cfg), store, cfg
}

func addPage(store *repository.MemoryStore) *repository.Object {
	obj := &repository.Object{
		PID:    "test:page-1",
		Models: []string{repository.ModelBookPage},
		Datastreams: map[string]*repository.Datastream{
			"OBJ": {ID: "OBJ", MimeType: "image/tiff", Content: []byte("pixels")},
		},
	}
	store.AddObject(obj)
	return obj
}

func TestDerivePagePDF(t *testing.T) {
	runner := &fakeRunner{
		handle: func(name string, args []string) *shell.Result {
			// convert writes its last argument
			out := args[len(args)-1]
			require.NoError(t, os.WriteFile(out, []byte("%PDF-1.4 fake"), 0644))
			return &shell.Result{}
		},
	}
	p, store, cfg := newTestPipeline(t, runner)
	obj := addPage(store)

	err := p.DerivePagePDF(context.Background(), obj, nil)
	require.NoError(t, err)

	require.Len(t, runner.commands, 1)
	require.Contains(t, runner.commands[0], "convert -compress LZW ")
	require.True(t, strings.HasSuffix(runner.commands[0], "test_page-1_OBJ.tif.pdf"))

	ds := obj.Datastreams["PDF"]
	require.NotNil(t, ds)
	require.Equal(t, "application/pdf", ds.MimeType)
	require.Equal(t, []byte("%PDF-1.4 fake"), ds.Content)

	// Both the staged source and the local PDF are removed
	entries, err := os.ReadDir(cfg.TempDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDerivePagePDFConversionFailure(t *testing.T) {
	runner := &fakeRunner{
		handle: func(name string, args []string) *shell.Result {
			return &shell.Result{ExitCode: 1, Stderr: "convert: no decode delegate"}
		},
	}
	p, store, cfg := newTestPipeline(t, runner)
	obj := addPage(store)

	err := p.DerivePagePDF(context.Background(), obj, nil)
	require.Error(t, err)
	require.False(t, obj.HasDatastream("PDF"))

	entries, err := os.ReadDir(cfg.TempDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDerivePagePDFNotDerivable(t *testing.T) {
	runner := &fakeRunner{}
	p, store, _ := newTestPipeline(t, runner)

	obj := &repository.Object{
		PID:         "test:page-2",
		Models:      []string{repository.ModelBookPage},
		Datastreams: map[string]*repository.Datastream{},
	}
	store.AddObject(obj)

	err := p.DerivePagePDF(context.Background(), obj, nil)
	require.ErrorIs(t, err, derivatives.ErrNotDerivable)
	require.Empty(t, runner.commands)
}

func TestCombinePDFsCommandLine(t *testing.T) {
	runner := &fakeRunner{}
	p, _, _ := newTestPipeline(t, runner)

	err := p.CombinePDFs(context.Background(), []string{"a.pdf", "b.pdf", "c.pdf"}, "out.pdf")
	require.NoError(t, err)
	require.Len(t, runner.commands, 1)
	require.Equal(t, "gs -dBATCH -dNOPAUSE -q -sDEVICE=pdfwrite -sOutputFile=out.pdf a.pdf b.pdf c.pdf", runner.commands[0])
}

func TestAppendPDFRemovesTempCopy(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "book.pdf")
	require.NoError(t, os.WriteFile(existing, []byte("original"), 0644))

	runner := &fakeRunner{
		handle: func(name string, args []string) *shell.Result {
			return &shell.Result{}
		},
	}
	p, _, _ := newTestPipeline(t, runner)

	err := p.AppendPDF(context.Background(), existing, []string{"a.pdf", "b.pdf"})
	require.NoError(t, err)

	// The temp copy of the original leads the merge input list
	require.Len(t, runner.commands, 1)
	require.Contains(t, runner.commands[0], "-sOutputFile="+existing+" "+existing+".temp.pdf a.pdf b.pdf")

	_, err = os.Stat(existing + ".temp.pdf")
	require.True(t, os.IsNotExist(err))
}

func TestAppendPDFRemovesTempCopyOnFailure(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "book.pdf")
	require.NoError(t, os.WriteFile(existing, []byte("original"), 0644))

	runner := &fakeRunner{
		handle: func(name string, args []string) *shell.Result {
			return &shell.Result{ExitCode: 1}
		},
	}
	p, _, _ := newTestPipeline(t, runner)

	err := p.AppendPDF(context.Background(), existing, []string{"a.pdf"})
	require.Error(t, err)

	_, err = os.Stat(existing + ".temp.pdf")
	require.True(t, os.IsNotExist(err))
}
