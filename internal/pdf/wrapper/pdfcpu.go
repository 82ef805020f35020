package wrapper

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// fontResourcePrefix keeps overlay fonts apart from the page's own font names
const fontResourcePrefix = "Esign"

// PDFCPULibrary implements PDFLibrary interface using pdfcpu
type PDFCPULibrary struct {
	config FactoryConfig
}

// NewPDFCPULibrary creates a new pdfcpu library wrapper
func NewPDFCPULibrary(config FactoryConfig) *PDFCPULibrary {
	return &PDFCPULibrary{config: config}
}

// Open parses data into a pdfcpu context
func (p *PDFCPULibrary) Open(data []byte) (PDFDocument, error) {
	if p.config.MaxFileSize > 0 && int64(len(data)) > p.config.MaxFileSize {
		return nil, &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "open",
			Err:     fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge.Err, len(data), p.config.MaxFileSize),
		}
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	// plain xref table and no object streams keep the output readable by
	// every downstream consumer
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "open",
			Err:     fmt.Errorf("failed to read PDF context: %w", err),
		}
	}

	if ctx.Encrypt != nil {
		return nil, &WrapperError{Library: LibraryPDFCPU, Op: "open", Err: ErrEncrypted.Err}
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "open",
			Err:     fmt.Errorf("failed to ensure page count: %w", err),
		}
	}

	return &PDFCPUDocument{ctx: ctx}, nil
}

// GetLibraryType returns the library type
func (p *PDFCPULibrary) GetLibraryType() LibraryType {
	return LibraryPDFCPU
}

// GetVersion returns the pdfcpu version
func (p *PDFCPULibrary) GetVersion() string {
	return "pdfcpu-v0.11.0"
}

// PDFCPUDocument implements PDFDocument interface using pdfcpu
type PDFCPUDocument struct {
	ctx    *model.Context
	closed bool
}

// GetPageCount returns the number of pages in the document
func (d *PDFCPUDocument) GetPageCount() (int, error) {
	if d.closed {
		return 0, &WrapperError{Library: LibraryPDFCPU, Op: "get_page_count", Err: ErrDocumentClosed.Err}
	}
	return d.ctx.PageCount, nil
}

// GetPage returns a specific page
func (d *PDFCPUDocument) GetPage(pageNum int) (PDFPage, error) {
	if d.closed {
		return nil, &WrapperError{Library: LibraryPDFCPU, Op: "get_page", Err: ErrDocumentClosed.Err}
	}

	if pageNum < 1 || pageNum > d.ctx.PageCount {
		return nil, &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "get_page",
			Err:     fmt.Errorf("%w %d (document has %d pages)", ErrInvalidPage.Err, pageNum, d.ctx.PageCount),
		}
	}

	pageDict, _, _, err := d.ctx.PageDict(pageNum, false)
	if err != nil {
		return nil, &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "get_page",
			Err:     fmt.Errorf("error getting page dictionary for page %d: %w", pageNum, err),
		}
	}

	return &PDFCPUPage{
		ctx:     d.ctx,
		pageNum: pageNum,
		dict:    pageDict,
	}, nil
}

// Write serializes the document
func (d *PDFCPUDocument) Write(w io.Writer) error {
	if d.closed {
		return &WrapperError{Library: LibraryPDFCPU, Op: "write", Err: ErrDocumentClosed.Err}
	}
	if err := api.WriteContext(d.ctx, w); err != nil {
		return &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "write",
			Err:     fmt.Errorf("error writing PDF: %w", err),
		}
	}
	return nil
}

// Close releases the context
func (d *PDFCPUDocument) Close() error {
	d.closed = true
	d.ctx = nil
	return nil
}

// PDFCPUPage implements PDFPage interface using pdfcpu
type PDFCPUPage struct {
	ctx     *model.Context
	pageNum int
	dict    types.Dict
}

// GetNumber returns the 1-based page number
func (p *PDFCPUPage) GetNumber() int {
	return p.pageNum
}

// GetBox returns the (possibly inherited) media box
func (p *PDFCPUPage) GetBox() (*Rectangle, error) {
	_, _, inhPAttrs, err := p.ctx.PageDict(p.pageNum, true)
	if err != nil {
		return nil, &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "get_box",
			Err:     fmt.Errorf("error getting page attributes for page %d: %w", p.pageNum, err),
		}
	}
	if inhPAttrs == nil || inhPAttrs.MediaBox == nil {
		return nil, &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "get_box",
			Err:     fmt.Errorf("page %d has no media box", p.pageNum),
		}
	}

	mb := inhPAttrs.MediaBox
	return NewRectangle(mb.LL.X, mb.LL.Y, mb.UR.X, mb.UR.Y), nil
}

// EnsureFont registers a standard Type1 font in the page's font resources
func (p *PDFCPUPage) EnsureFont(font StandardFont) (string, error) {
	resources, err := p.resources()
	if err != nil {
		return "", err
	}

	fonts, err := p.ctx.DereferenceDict(resources["Font"])
	if err != nil {
		return "", &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "ensure_font",
			Err:     fmt.Errorf("error dereferencing font resources: %w", err),
		}
	}
	if fonts == nil {
		fonts = types.Dict{}
		resources["Font"] = fonts
	}

	name := fontResourcePrefix + string(font)
	if _, ok := fonts[name]; !ok {
		fonts[name] = types.Dict{
			"Type":     types.Name("Font"),
			"Subtype":  types.Name("Type1"),
			"BaseFont": types.Name(string(font)),
			"Encoding": types.Name("WinAnsiEncoding"),
		}
	}
	return name, nil
}

// resources returns the page's own resource dictionary. A page that only
// inherits its resources gets a copy of them so additions stay local.
func (p *PDFCPUPage) resources() (types.Dict, error) {
	if obj, ok := p.dict["Resources"]; ok && obj != nil {
		d, err := p.ctx.DereferenceDict(obj)
		if err != nil {
			return nil, &WrapperError{
				Library: LibraryPDFCPU,
				Op:      "resources",
				Err:     fmt.Errorf("error dereferencing page resources: %w", err),
			}
		}
		if d != nil {
			return d, nil
		}
	}

	_, _, inhPAttrs, err := p.ctx.PageDict(p.pageNum, true)
	if err != nil {
		return nil, &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "resources",
			Err:     fmt.Errorf("error getting inherited resources: %w", err),
		}
	}

	res := types.Dict{}
	if inhPAttrs != nil {
		for k, v := range inhPAttrs.Resources {
			res[k] = v
		}
	}
	if fonts, ok := res["Font"].(types.Dict); ok {
		// copy so the page tree's shared font dictionary stays untouched
		local := types.Dict{}
		for k, v := range fonts {
			local[k] = v
		}
		res["Font"] = local
	}
	p.dict["Resources"] = res
	return res, nil
}

// AppendContent adds content as a new stream after the page's existing ones
func (p *PDFCPUPage) AppendContent(content []byte) error {
	sd, err := p.ctx.NewStreamDictForBuf(content)
	if err != nil {
		return &WrapperError{Library: LibraryPDFCPU, Op: "append_content", Err: err}
	}
	if err := sd.Encode(); err != nil {
		return &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "append_content",
			Err:     fmt.Errorf("error encoding stream: %w", err),
		}
	}
	ref, err := p.ctx.IndRefForNewObject(*sd)
	if err != nil {
		return &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "append_content",
			Err:     fmt.Errorf("error creating indirect reference for new stream dict: %w", err),
		}
	}

	switch existing := p.dict["Contents"].(type) {
	case nil:
		p.dict["Contents"] = *ref
	case types.Array:
		p.dict["Contents"] = append(existing, *ref)
	case types.IndirectRef:
		obj, err := p.ctx.Dereference(existing)
		if err != nil {
			return &WrapperError{
				Library: LibraryPDFCPU,
				Op:      "append_content",
				Err:     fmt.Errorf("error dereferencing content stream: %w", err),
			}
		}
		if arr, ok := obj.(types.Array); ok {
			contents := make(types.Array, 0, len(arr)+1)
			contents = append(contents, arr...)
			p.dict["Contents"] = append(contents, *ref)
		} else {
			p.dict["Contents"] = types.Array{existing, *ref}
		}
	default:
		return &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "append_content",
			Err:     fmt.Errorf("unsupported page contents %T", existing),
		}
	}
	return nil
}
