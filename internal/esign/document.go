package esign

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	pdferrors "github.com/a3tai/mcp-esign-templates/internal/pdf/errors"
)

// Document attribute keys
const (
	keyPath           = "path"
	keyDocumentBase64 = "document_base64"
)

// Renderer draws the overlay of a document for a set of recipients and
// returns the resulting PDF bytes.
type Renderer interface {
	Render(doc *Document, recipients []*Recipient) ([]byte, error)
}

// ReportingRenderer is a Renderer that also returns the recoverable problems
// met while drawing, such as fields aimed at pages the PDF lacks.
type ReportingRenderer interface {
	Renderer
	RenderWithReport(doc *Document, recipients []*Recipient) ([]byte, *pdferrors.ErrorCollection, error)
}

// Document is one source PDF of a template. The PDF itself is read-only
// source material; rendering always produces new bytes.
type Document struct {
	data     *Attrs
	baseDir  string
	renderer Renderer

	blankOnce sync.Once
	blank     []byte
	blankErr  error
}

// NewDocument builds a document whose relative path resolves against baseDir
func NewDocument(data *Attrs, baseDir string, renderer Renderer) *Document {
	return &Document{
		data:     data.Clone(),
		baseDir:  baseDir,
		renderer: renderer,
	}
}

// DocumentID returns the vendor document id
func (d *Document) DocumentID() string { return d.data.String(keyDocumentID) }

// Name returns the document display name
func (d *Document) Name() string { return d.data.String(keyName) }

// Data returns the document metadata
func (d *Document) Data() *Attrs { return d.data }

// Path returns the location of the source PDF
func (d *Document) Path() string {
	p := d.data.String(keyPath)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(d.baseDir, p)
}

// Merge copies extra metadata onto the document
func (d *Document) Merge(extra *Attrs) {
	d.data.Merge(extra)
}

// FieldsForRecipient returns the recipient's fields placed on this document
func (d *Document) FieldsForRecipient(r *Recipient) []*Field {
	return r.FieldsForDocument(d.DocumentID())
}

// TabsForRecipient returns the recipient's tabs placed on this document
func (d *Document) TabsForRecipient(r *Recipient) []*Field {
	return r.TabsForDocument(d.DocumentID())
}

// BlankPDF returns the unmodified source bytes, read once
func (d *Document) BlankPDF() ([]byte, error) {
	d.blankOnce.Do(func() {
		path := d.Path()
		if path == "" {
			d.blankErr = pdferrors.New(pdferrors.ErrorTypeInvalidTemplate, "document has no path").
				WithContext(d.DocumentID())
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			d.blankErr = pdferrors.Wrap(pdferrors.ErrorTypeIO, err).WithFile(path)
			return
		}
		d.blank = data
	})
	return d.blank, d.blankErr
}

// IsStatic reports whether no recipient in the set has a pdf-form-capable
// field on this document. Signature and initial tabs alone need no overlay.
func (d *Document) IsStatic(recipients []*Recipient) bool {
	for _, r := range recipients {
		if len(d.FieldsForRecipient(r)) > 0 {
			return false
		}
	}
	return true
}

// ToPDF returns the source bytes for a static document and the rendered
// overlay otherwise.
func (d *Document) ToPDF(recipients []*Recipient) ([]byte, error) {
	data, _, err := d.ToPDFWithReport(recipients)
	return data, err
}

// ToPDFWithReport is ToPDF plus the renderer's report. The report is empty
// for static documents and for renderers that do not report.
func (d *Document) ToPDFWithReport(recipients []*Recipient) ([]byte, *pdferrors.ErrorCollection, error) {
	if d.IsStatic(recipients) {
		data, err := d.BlankPDF()
		if err != nil {
			return nil, nil, err
		}
		return data, pdferrors.NewErrorCollection(d.Path()), nil
	}
	if d.renderer == nil {
		return nil, nil, fmt.Errorf("document %s: no renderer configured", d.DocumentID())
	}
	if rr, ok := d.renderer.(ReportingRenderer); ok {
		data, report, err := rr.RenderWithReport(d, recipients)
		if err != nil {
			return nil, nil, err
		}
		if report == nil {
			report = pdferrors.NewErrorCollection(d.Path())
		}
		return data, report, nil
	}
	data, err := d.renderer.Render(d, recipients)
	if err != nil {
		return nil, nil, err
	}
	return data, pdferrors.NewErrorCollection(d.Path()), nil
}

// SaveTo renders the document and replaces path with the result
func (d *Document) SaveTo(path string, recipients []*Recipient) error {
	_, _, err := d.SaveWithReport(path, recipients)
	return err
}

// SaveWithReport is SaveTo returning the renderer's report and the number of
// bytes written.
func (d *Document) SaveWithReport(path string, recipients []*Recipient) (int, *pdferrors.ErrorCollection, error) {
	data, report, err := d.ToPDFWithReport(recipients)
	if err != nil {
		return 0, nil, err
	}
	if err := WriteAtomic(path, data); err != nil {
		return 0, nil, err
	}
	return len(data), report, nil
}

// WriteAtomic replaces path with data. The bytes go to a temporary file in
// the same directory first, so a failure never leaves a partial file at path.
func WriteAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".esign-*.pdf")
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeIO, err).WithFile(path)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeIO, err).WithFile(path)
	}
	if err = tmp.Sync(); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeIO, err).WithFile(path)
	}
	if err = tmp.Close(); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeIO, err).WithFile(path)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeIO, err).WithFile(path)
	}
	return nil
}

// CompositeEntry returns the resubmission form: metadata without the local
// path plus the rendered bytes in base64.
func (d *Document) CompositeEntry(recipients []*Recipient) (*Attrs, error) {
	data, err := d.ToPDF(recipients)
	if err != nil {
		return nil, err
	}
	entry := d.data.Without(keyPath)
	entry.Set(keyDocumentBase64, base64.StdEncoding.EncodeToString(data))
	return entry, nil
}
