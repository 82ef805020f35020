package esign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/mcp-esign-templates/internal/pdf/errors"
)

func buyerData() *Attrs {
	return AttrsOf(
		"role_name", "Buyer",
		"recipient_id", "1",
		"pdf_fields", AttrsOf(
			"text_tabs", []any{
				AttrsOf("tab_type", "text", "tab_label", "name", "document_id", "1", "page_number", "1"),
				AttrsOf("tab_type", "text", "tab_label", "city", "document_id", "2", "page_number", "1"),
			},
			"checkbox_tabs", []any{
				AttrsOf("tab_type", "checkbox", "tab_label", "agree", "document_id", "1", "page_number", "2"),
			},
		),
		"tabs", AttrsOf(
			"sign_here_tabs", []any{
				AttrsOf("tab_type", "signhere", "tab_label", "sig", "document_id", "1", "page_number", "2"),
			},
			"initial_here_tabs", []any{
				AttrsOf("tab_type", "initialhere", "tab_label", "init", "document_id", "2", "page_number", "1"),
			},
			"date_signed_tabs", []any{},
		),
	)
}

func labels(fields []*Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Label())
	}
	return out
}

func TestNewRecipient(t *testing.T) {
	r, err := NewRecipient(buyerData())
	require.NoError(t, err)

	assert.Equal(t, "Buyer", r.RoleName())
	assert.Equal(t, "1", r.RecipientID())
	assert.False(t, r.Data().Has("pdf_fields"))
	assert.False(t, r.Data().Has("tabs"))

	require.Len(t, r.FieldGroups(), 2)
	assert.Equal(t, "text_tabs", r.FieldGroups()[0].Type)
	assert.Equal(t, "checkbox_tabs", r.FieldGroups()[1].Type)
	require.Len(t, r.TabGroups(), 3)
	assert.Empty(t, r.TabGroups()[2].Fields)

	assert.Equal(t, []string{"name", "city", "agree"}, labels(r.Fields()))
	assert.Equal(t, []string{"sig", "init"}, labels(r.Tabs()))
}

func TestRecipient_DocumentRouting(t *testing.T) {
	r, err := NewRecipient(buyerData())
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "agree"}, labels(r.FieldsForDocument("1")))
	assert.Equal(t, []string{"city"}, labels(r.FieldsForDocument("2")))
	assert.Empty(t, r.FieldsForDocument("3"))
	assert.Equal(t, []string{"sig"}, labels(r.TabsForDocument("1")))

	page0, err := r.FieldsForDocumentPage("1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, labels(page0))

	page1, err := r.FieldsForDocumentPage("1", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"agree"}, labels(page1))
}

func TestRecipient_FieldsForDocumentPageMalformed(t *testing.T) {
	data := AttrsOf("pdf_fields", AttrsOf("text_tabs", []any{
		AttrsOf("tab_type", "text", "document_id", "1", "page_number", "one"),
	}))
	r, err := NewRecipient(data)
	require.NoError(t, err)

	_, err = r.FieldsForDocumentPage("1", 0)
	assert.ErrorIs(t, err, pdferrors.ErrMalformedGeometry)
}

func TestRecipient_InvalidGroups(t *testing.T) {
	_, err := NewRecipient(AttrsOf("tabs", AttrsOf("sign_here_tabs", "nope")))
	assert.ErrorIs(t, err, pdferrors.ErrInvalidTemplate)

	_, err = NewRecipient(AttrsOf("tabs", AttrsOf("sign_here_tabs", []any{"nope"})))
	assert.ErrorIs(t, err, pdferrors.ErrInvalidTemplate)
}

func TestRecipient_CompositeEntry(t *testing.T) {
	r, err := NewRecipient(buyerData())
	require.NoError(t, err)

	r.FieldByLabel("init").Disabled = true
	r.Merge(AttrsOf("email", "buyer@example.com"))

	entry := r.CompositeEntry()
	assert.Equal(t, "buyer@example.com", entry.String("email"))
	assert.False(t, entry.Has("pdf_fields"))

	tabs := entry.Node("tabs")
	require.NotNil(t, tabs)
	// initial_here_tabs is empty after filtering, date_signed_tabs was empty
	assert.Equal(t, []string{"sign_here_tabs"}, tabs.Keys())
	sig := tabs.List("sign_here_tabs")[0].(*Attrs)
	assert.Equal(t, "sig", sig.String("tab_label"))
}

func TestRecipient_FieldByLabel(t *testing.T) {
	r, err := NewRecipient(buyerData())
	require.NoError(t, err)

	assert.NotNil(t, r.FieldByLabel("agree"))
	assert.True(t, r.FieldByLabel("sig").IsSignature())
	assert.Nil(t, r.FieldByLabel("missing"))
}
