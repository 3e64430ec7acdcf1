// Package pdf derives per-page PDFs from canonical page images and combines
// them into paged-content PDFs in page order.
package pdf

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/tendant/paged-content-pipeline/internal/derivatives"
	"github.com/tendant/paged-content-pipeline/internal/repository"
	"github.com/tendant/paged-content-pipeline/internal/shell"
	"github.com/tendant/paged-content-pipeline/pkg/pipeline"
)

// Option is one flag/value pair passed to the image conversion binary
type Option struct {
	Flag  string
	Value string
}

// DefaultConvertOptions returns the default image-to-PDF conversion options
func DefaultConvertOptions() []Option {
	return []Option{{Flag: "-compress", Value: "LZW"}}
}

// Pipeline derives and combines PDF datastreams
type Pipeline struct {
	store  repository.Store
	mat    *derivatives.Materializer
	runner shell.Runner
	cfg    *derivatives.Config
}

// New creates a PDF pipeline
func New(store repository.Store, mat *derivatives.Materializer, runner shell.Runner, cfg *derivatives.Config) *Pipeline {
	return &Pipeline{
		store:  store,
		mat:    mat,
		runner: runner,
		cfg:    cfg,
	}
}

// DerivePagePDF converts a page's canonical image to PDF and writes it back
// as the page's PDF datastream. Nothing is written on failure.
func (p *Pipeline) DerivePagePDF(ctx context.Context, obj *repository.Object, opts []Option) error {
	if opts == nil {
		opts = DefaultConvertOptions()
	}

	src, err := p.mat.MaterializeSource(ctx, obj, derivatives.KindPDF)
	if err != nil {
		return err
	}
	defer os.Remove(src)

	outPDF := src + ".pdf"
	defer os.Remove(outPDF)

	args := make([]string, 0, len(opts)*2+2)
	for _, opt := range opts {
		args = append(args, opt.Flag, opt.Value)
	}
	args = append(args, src, outPDF)

	result, err := p.runner.Run(ctx, p.cfg.ConvertPath, args...)
	if err != nil {
		return fmt.Errorf("pdf conversion for %s: %w", obj.PID, err)
	}
	if !result.Ok() {
		log.Printf("PDF conversion failed for %s: %s", obj.PID, result)
		return fmt.Errorf("pdf conversion for %s exited %d", obj.PID, result.ExitCode)
	}

	file, err := os.Open(outPDF)
	if err != nil {
		return fmt.Errorf("pdf conversion for %s produced no output: %w", obj.PID, err)
	}
	defer file.Close()

	ds := repository.Datastream{
		ID:           pipeline.DSIDPDF,
		Label:        "PDF",
		MimeType:     "application/pdf",
		ControlGroup: repository.ControlGroupManaged,
	}
	if err := p.store.WriteDatastream(ctx, obj.PID, ds, file); err != nil {
		return fmt.Errorf("failed to store PDF for %s: %w", obj.PID, err)
	}
	return nil
}

// CombinePDFs merges the files, in the given order, into outputPath
func (p *Pipeline) CombinePDFs(ctx context.Context, files []string, outputPath string) error {
	args := append([]string{
		"-dBATCH",
		"-dNOPAUSE",
		"-q",
		"-sDEVICE=pdfwrite",
		"-sOutputFile=" + outputPath,
	}, files...)

	result, err := p.runner.Run(ctx, p.cfg.PDFMergePath, args...)
	if err != nil {
		return fmt.Errorf("pdf merge: %w", err)
	}
	if !result.Ok() {
		log.Printf("PDF merge failed: %s", result)
		return fmt.Errorf("pdf merge exited %d", result.ExitCode)
	}
	return nil
}

// AppendPDF merges existingFile followed by newFiles back into existingFile.
// The merge reads from a temporary copy of the original so the output can
// overwrite it; the copy is removed whether or not the merge succeeded.
func (p *Pipeline) AppendPDF(ctx context.Context, existingFile string, newFiles []string) error {
	tempFile := existingFile + ".temp.pdf"
	if err := copyFile(existingFile, tempFile); err != nil {
		return fmt.Errorf("failed to stage existing pdf: %w", err)
	}
	defer os.Remove(tempFile)

	return p.CombinePDFs(ctx, append([]string{tempFile}, newFiles...), existingFile)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
