// Package pdfdoc reads PDF documents and writes page subsets of them.
//
// It measures pages by trial serialization: each page is copied into a new
// single-page document and written out, and the byte count of that output is
// the page's standalone size. Shared resources and container overhead make
// this the only reliable measure, so every call does the full write.
package pdfdoc

import (
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ContentType is the MIME type of documents written by this package.
const ContentType = "application/pdf"

func init() {
	// Lambda has no writable home directory for pdfcpu's config file.
	api.DisableConfigDir()
}

// SerializationError reports a document or page that could not be parsed or written.
// Page is 0 when the whole document is at fault.
type SerializationError struct {
	Page int
	Err  error
}

func (e *SerializationError) Error() string {
	if e.Page == 0 {
		return fmt.Sprintf("pdf serialization failed: %v", e.Err)
	}
	return fmt.Sprintf("pdf serialization failed on page %d: %v", e.Page, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// Document is a parsed PDF held in memory.
type Document struct {
	ctx *model.Context
}

// Open parses and validates a PDF.
func Open(r io.ReadSeeker) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(r, conf)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	return &Document{ctx: ctx}, nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

// PageSize returns the number of bytes a document holding only this page takes.
func (d *Document) PageSize(page int) (int64, error) {
	var w countingWriter
	if err := d.WritePages(&w, []int{page}); err != nil {
		return 0, err
	}
	return w.n, nil
}

// WritePages writes a new document made of the given pages, in the given order.
func (d *Document) WritePages(w io.Writer, pages []int) error {
	if len(pages) == 0 {
		return &SerializationError{Err: fmt.Errorf("no pages selected")}
	}
	for _, p := range pages {
		if p < 1 || p > d.ctx.PageCount {
			return &SerializationError{Page: p, Err: fmt.Errorf("page out of range 1..%d", d.ctx.PageCount)}
		}
	}

	sub, err := pdfcpu.ExtractPages(d.ctx, pages, false)
	if err != nil {
		return &SerializationError{Page: pages[0], Err: err}
	}
	if err := api.WriteContext(sub, w); err != nil {
		return &SerializationError{Page: pages[0], Err: err}
	}
	return nil
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
