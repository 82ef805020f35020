package overlay

import (
	"bytes"
	"fmt"
	"log"

	"github.com/a3tai/mcp-esign-templates/internal/esign"
	pdferrors "github.com/a3tai/mcp-esign-templates/internal/pdf/errors"
	"github.com/a3tai/mcp-esign-templates/internal/pdf/wrapper"
)

var _ esign.ReportingRenderer = (*Renderer)(nil)

// Renderer bakes field state into a document's pages
type Renderer struct {
	library wrapper.PDFLibrary
	font    wrapper.StandardFont
}

// NewRenderer creates a renderer drawing through library
func NewRenderer(library wrapper.PDFLibrary) *Renderer {
	return &Renderer{
		library: library,
		font:    wrapper.FontCourier,
	}
}

// Render implements esign.Renderer
func (r *Renderer) Render(doc *esign.Document, recipients []*esign.Recipient) ([]byte, error) {
	out, _, err := r.RenderWithReport(doc, recipients)
	return out, err
}

// RenderWithReport renders like Render and also returns the recoverable
// problems met on the way, such as fields aimed at pages the PDF lacks.
func (r *Renderer) RenderWithReport(doc *esign.Document, recipients []*esign.Recipient) ([]byte, *pdferrors.ErrorCollection, error) {
	src, err := doc.BlankPDF()
	if err != nil {
		return nil, nil, err
	}

	pdfDoc, err := r.library.Open(src)
	if err != nil {
		return nil, nil, pdferrors.Wrap(pdferrors.ErrorTypePDFModel, err).WithFile(doc.Path())
	}
	defer pdfDoc.Close()

	pageCount, err := pdfDoc.GetPageCount()
	if err != nil {
		return nil, nil, pdferrors.Wrap(pdferrors.ErrorTypePDFModel, err).WithFile(doc.Path())
	}

	report := pdferrors.NewErrorCollection(doc.Path())
	if err := reportMissingPages(report, doc.DocumentID(), recipients, pageCount); err != nil {
		return nil, nil, err
	}

	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		if err := r.renderPage(pdfDoc, pageNum, doc.DocumentID(), recipients); err != nil {
			return nil, nil, pdferrors.Wrap(pdferrors.ErrorTypePDFModel, err).
				WithFile(doc.Path()).WithPage(pageNum)
		}
	}

	var buf bytes.Buffer
	if err := pdfDoc.Write(&buf); err != nil {
		return nil, nil, pdferrors.Wrap(pdferrors.ErrorTypePDFModel, err).WithFile(doc.Path())
	}
	return buf.Bytes(), report, nil
}

func (r *Renderer) renderPage(pdfDoc wrapper.PDFDocument, pageNum int, documentID string, recipients []*esign.Recipient) error {
	page, err := pdfDoc.GetPage(pageNum)
	if err != nil {
		return err
	}
	box, err := page.GetBox()
	if err != nil {
		return err
	}
	font, err := page.EnsureFont(r.font)
	if err != nil {
		return err
	}

	ops, err := PlanPage(box, documentID, recipients, pageNum-1)
	if err != nil {
		return err
	}
	content, err := EncodeAll(ops, font)
	if err != nil {
		return fmt.Errorf("failed to encode overlay: %w", err)
	}
	return page.AppendContent(content)
}

// reportMissingPages records every enabled field whose page is outside the
// document. Such fields are not drawn; that is not an error.
func reportMissingPages(report *pdferrors.ErrorCollection, documentID string, recipients []*esign.Recipient, pageCount int) error {
	check := func(f *esign.Field) error {
		idx, err := f.PageIndex()
		if err != nil {
			return err
		}
		if idx < 0 || idx >= pageCount {
			warning := pdferrors.Newf(pdferrors.ErrorTypeMissingPage,
				"field %q targets page %d of a %d page document", f.Label(), idx+1, pageCount).
				WithPage(idx + 1)
			report.Add(warning)
			log.Printf("Warning: %v", warning)
		}
		return nil
	}

	for _, r := range recipients {
		for _, f := range r.FieldsForDocument(documentID) {
			if f.Disabled {
				continue
			}
			if !f.IsRadioGroup() {
				if err := check(f); err != nil {
					return err
				}
				continue
			}
			for _, radio := range f.Radios() {
				if err := check(radio); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
