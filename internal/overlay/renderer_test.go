package overlay

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-esign-templates/internal/esign"
	pdferrors "github.com/a3tai/mcp-esign-templates/internal/pdf/errors"
	"github.com/a3tai/mcp-esign-templates/internal/pdf/pdftest"
	"github.com/a3tai/mcp-esign-templates/internal/pdf/wrapper"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	lib, err := wrapper.NewPDFLibraryFactory().Create(wrapper.LibraryPDFCPU)
	require.NoError(t, err)
	return NewRenderer(lib)
}

func writeSource(t *testing.T, data []byte) (dir string) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.pdf"), data, 0o644))
	return dir
}

func pageTexts(t *testing.T, data []byte) []string {
	t.Helper()
	texts, err := wrapper.NewLedongthucTextReader(wrapper.FactoryConfig{}).PageTexts(data)
	require.NoError(t, err)
	return texts
}

func TestRenderer_DrawsTextOnTheRightPage(t *testing.T) {
	dir := writeSource(t, pdftest.Minimal(2))
	renderer := newRenderer(t)
	doc := esign.NewDocument(esign.AttrsOf("document_id", "1", "path", "doc.pdf"), dir, renderer)

	field := text("Jane Doe")
	field.Set("page_number", "2")
	recipients := []*esign.Recipient{recipientWith(t, "text_tabs", field)}

	out, err := doc.ToPDF(recipients)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))

	texts := pageTexts(t, out)
	require.Len(t, texts, 2)
	assert.NotContains(t, texts[0], "Jane Doe")
	assert.Contains(t, texts[1], "Jane Doe")
}

func TestRenderer_OffsetMediaBoxAndExistingContent(t *testing.T) {
	src := pdftest.Build(pdftest.Doc{Pages: []pdftest.Page{{
		MediaBox: []float64{0, 0, 612, 792},
		Content:  "0 0 m 10 10 l S",
	}, {
		MediaBox: []float64{36, 36, 648, 828},
	}}})
	dir := writeSource(t, src)
	doc := esign.NewDocument(esign.AttrsOf("document_id", "1", "path", "doc.pdf"), dir, newRenderer(t))

	first := text("First")
	second := text("Second")
	second.Set("page_number", "2")
	out, err := doc.ToPDF([]*esign.Recipient{recipientWith(t, "text_tabs", first, second)})
	require.NoError(t, err)

	texts := pageTexts(t, out)
	require.Len(t, texts, 2)
	assert.Contains(t, texts[1], "Second")

	// the source content stream survives next to the overlay
	lib, err := wrapper.NewPDFLibraryFactory().Create(wrapper.LibraryPDFCPU)
	require.NoError(t, err)
	reopened, err := lib.Open(out)
	require.NoError(t, err)
	defer reopened.Close()
	count, err := reopened.GetPageCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRenderer_StaticDocumentIsUntouched(t *testing.T) {
	src := pdftest.Minimal(1)
	dir := writeSource(t, src)
	doc := esign.NewDocument(esign.AttrsOf("document_id", "1", "path", "doc.pdf"), dir, newRenderer(t))

	r, err := esign.NewRecipient(esign.AttrsOf(
		"role_name", "Seller",
		"tabs", esign.AttrsOf(
			"sign_here_tabs", []any{esign.AttrsOf("tab_type", "signhere", "document_id", "1", "page_number", "1")},
			"initial_here_tabs", []any{esign.AttrsOf("tab_type", "initialhere", "document_id", "1", "page_number", "1")},
		),
	))
	require.NoError(t, err)

	recipients := []*esign.Recipient{r}
	assert.True(t, doc.IsStatic(recipients))
	out, err := doc.ToPDF(recipients)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestRenderer_MissingPageIsAWarning(t *testing.T) {
	dir := writeSource(t, pdftest.Minimal(1))
	renderer := newRenderer(t)
	doc := esign.NewDocument(esign.AttrsOf("document_id", "1", "path", "doc.pdf"), dir, renderer)

	onPage := text("Visible")
	offPage := text("Lost")
	offPage.Set("page_number", "7")

	out, report, err := renderer.RenderWithReport(doc, []*esign.Recipient{recipientWith(t, "text_tabs", onPage, offPage)})
	require.NoError(t, err)
	errs, warnings := report.Count()
	assert.Equal(t, 0, errs)
	require.Equal(t, 1, warnings)
	assert.ErrorIs(t, report.Warnings[0], pdferrors.ErrMissingPage)
	assert.Equal(t, 7, report.Warnings[0].PageNumber)

	texts := pageTexts(t, out)
	assert.Contains(t, texts[0], "Visible")
	assert.NotContains(t, texts[0], "Lost")
}

func TestRenderer_Errors(t *testing.T) {
	renderer := newRenderer(t)

	// missing source
	doc := esign.NewDocument(esign.AttrsOf("document_id", "1", "path", "absent.pdf"), t.TempDir(), renderer)
	_, err := renderer.Render(doc, nil)
	assert.ErrorIs(t, err, pdferrors.ErrIO)

	// not a PDF
	dir := writeSource(t, []byte("plain text"))
	doc = esign.NewDocument(esign.AttrsOf("document_id", "1", "path", "doc.pdf"), dir, renderer)
	_, err = renderer.Render(doc, nil)
	assert.ErrorIs(t, err, pdferrors.ErrPDFModel)

	// malformed geometry fails the render
	dir = writeSource(t, pdftest.Minimal(1))
	doc = esign.NewDocument(esign.AttrsOf("document_id", "1", "path", "doc.pdf"), dir, renderer)
	bad := text("x")
	bad.Set("page_number", "first")
	_, err = renderer.Render(doc, []*esign.Recipient{recipientWith(t, "text_tabs", bad)})
	assert.ErrorIs(t, err, pdferrors.ErrMalformedGeometry)
}

func TestRenderer_SaveTo(t *testing.T) {
	dir := writeSource(t, pdftest.Minimal(1))
	doc := esign.NewDocument(esign.AttrsOf("document_id", "1", "path", "doc.pdf"), dir, newRenderer(t))

	target := filepath.Join(dir, "filled.pdf")
	require.NoError(t, doc.SaveTo(target, []*esign.Recipient{recipientWith(t, "checkbox_tabs", checkbox("true"))}))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Len(t, pageTexts(t, data), 1)
}
