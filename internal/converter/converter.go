// Package converter turns a vendor template export (JSON, camelCase keys,
// documents inlined as base64) into a stored template: <name>.yml next to one
// <name>_<i>.pdf per document.
package converter

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/a3tai/mcp-esign-templates/internal/esign"
	pdferrors "github.com/a3tai/mcp-esign-templates/internal/pdf/errors"
)

const (
	keyName            = "name"
	keyTemplateOptions = "template_options"
	keyDocuments       = "documents"
	keyRecipients      = "recipients"
	keyTabs            = "tabs"
	keyPDFFields       = "pdf_fields"
	keyPath            = "path"
	keyDocumentBase64  = "document_base64"
)

// FieldTypes are the tab groups that hold pdf-form-capable fields. They are
// moved under pdf_fields so the overlay renderer draws them.
var FieldTypes = []string{
	"checkbox_tabs",
	"radio_group_tabs",
	"text_tabs",
	"list_tabs",
}

// TabTypes are the remaining tab groups the vendor knows about. Anything not
// listed here or in FieldTypes is dropped.
var TabTypes = []string{
	"approve_tabs",
	"company_tabs",
	"date_signed_tabs",
	"date_tabs",
	"decline_tabs",
	"email_address_tabs",
	"email_tabs",
	"envelope_id_tabs",
	"first_name_tabs",
	"formula_tabs",
	"full_name_tabs",
	"initial_here_tabs",
	"last_name_tabs",
	"notarize_tabs",
	"note_tabs",
	"number_tabs",
	"signer_attachment_tabs",
	"sign_here_tabs",
	"ssn_tabs",
	"tab_groups",
	"title_tabs",
	"view_tabs",
	"zip_tabs",
}

// Converter holds one parsed vendor export
type Converter struct {
	source string
	data   *esign.Attrs
}

// NewConverter reads and key-normalizes the export at path
func NewConverter(path string) (*Converter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeIO, err).WithFile(path)
	}
	defer f.Close()

	raw, err := esign.DecodeJSON(f)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidTemplate, err).WithFile(path)
	}
	return &Converter{source: path, data: UnderscoreKeys(raw)}, nil
}

// NewConverterFromAttrs wraps an already decoded export. Keys are normalized.
func NewConverterFromAttrs(source string, raw *esign.Attrs) *Converter {
	return &Converter{source: source, data: UnderscoreKeys(raw)}
}

// ConvertFile is NewConverter followed by Convert
func ConvertFile(path, outputDir, name string, opts ...esign.Option) (*esign.Template, error) {
	c, err := NewConverter(path)
	if err != nil {
		return nil, err
	}
	return c.Convert(outputDir, name, opts...)
}

// Source returns where the export was read from
func (c *Converter) Source() string { return c.source }

// Data returns the key-normalized export
func (c *Converter) Data() *esign.Attrs { return c.data }

// Convert writes the stored template into outputDir and loads it back
func (c *Converter) Convert(outputDir, name string, opts ...esign.Option) (*esign.Template, error) {
	documents, err := c.writeDocuments(outputDir, name)
	if err != nil {
		return nil, err
	}

	stored := esign.NewAttrs()
	stored.Set(keyName, name)
	stored.Set(keyTemplateOptions, c.data.Without(keyDocuments, keyRecipients))
	stored.Set(keyDocuments, documents)
	recipients, err := c.recipients()
	if err != nil {
		return nil, err
	}
	stored.Set(keyRecipients, recipients)

	out, err := yaml.Marshal(stored)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidTemplate, err).WithFile(c.source)
	}
	path := esign.TemplatePath(outputDir, name)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeIO, err).WithFile(path)
	}
	log.Printf("Converted %s into %s (%d documents)", c.source, path, len(documents))

	return esign.Load(outputDir, name, opts...)
}

func (c *Converter) writeDocuments(outputDir, name string) ([]any, error) {
	raw := c.data.List(keyDocuments)
	out := make([]any, 0, len(raw))
	for i, item := range raw {
		doc, ok := item.(*esign.Attrs)
		if !ok {
			return nil, pdferrors.Newf(pdferrors.ErrorTypeInvalidTemplate,
				"documents[%d] is not an object", i).WithFile(c.source)
		}

		encoded := doc.String(keyDocumentBase64)
		if encoded == "" {
			return nil, pdferrors.Newf(pdferrors.ErrorTypeInvalidTemplate,
				"documents[%d] has no %s", i, keyDocumentBase64).WithFile(c.source)
		}
		pdf, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidTemplate,
				fmt.Errorf("documents[%d]: %w", i, err)).WithFile(c.source)
		}

		fileName := fmt.Sprintf("%s_%d.pdf", name, i)
		target := filepath.Join(outputDir, fileName)
		if err := os.WriteFile(target, pdf, 0o644); err != nil {
			return nil, pdferrors.Wrap(pdferrors.ErrorTypeIO, err).WithFile(target)
		}

		entry := doc.Without(keyDocumentBase64)
		entry.Set(keyPath, fileName)
		out = append(out, entry)
	}
	return out, nil
}

func (c *Converter) recipients() (*esign.Attrs, error) {
	out := esign.NewAttrs()
	raw := c.data.Node(keyRecipients)
	for _, typ := range raw.Keys() {
		list := raw.List(typ)
		if len(list) == 0 {
			continue
		}
		converted := make([]any, 0, len(list))
		for i, item := range list {
			r, ok := item.(*esign.Attrs)
			if !ok {
				return nil, pdferrors.Newf(pdferrors.ErrorTypeInvalidTemplate,
					"recipients.%s[%d] is not an object", typ, i).WithFile(c.source)
			}
			converted = append(converted, splitTabs(r))
		}
		out.Set(typ, converted)
	}
	return out, nil
}

// splitTabs moves the recipient's tab groups into pdf_fields and tabs
func splitTabs(r *esign.Attrs) *esign.Attrs {
	tabs := r.Node(keyTabs)
	out := r.Without(keyTabs)
	out.Set(keyPDFFields, tabs.Only(FieldTypes...))
	out.Set(keyTabs, tabs.Only(TabTypes...))
	return out
}

// Export camelizes a composite entry into the shape the vendor accepts
func Export(t *esign.Template, groups []esign.RecipientGroup, sequence int) (*esign.Attrs, error) {
	entry, err := t.CompositeEntry(groups, sequence)
	if err != nil {
		return nil, err
	}
	return CamelizeKeys(entry), nil
}
