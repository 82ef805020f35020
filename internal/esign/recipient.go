package esign

import (
	pdferrors "github.com/a3tai/mcp-esign-templates/internal/pdf/errors"
)

// Groupings inside a stored recipient
const (
	keyPDFFields = "pdf_fields"
	keyTabs      = "tabs"
	keyRoleName  = "role_name"
)

// FieldGroup is one type bucket of a recipient (text_tabs, sign_here_tabs, ...)
type FieldGroup struct {
	Type   string
	Fields []*Field
}

// Recipient is a signer or role owning a set of fields and tabs.
// Fields are the pdf-form-capable elements; tabs are every other signing mark.
type Recipient struct {
	data   *Attrs
	fields []FieldGroup
	tabs   []FieldGroup
}

// NewRecipient builds a recipient from its stored attributes
func NewRecipient(data *Attrs) (*Recipient, error) {
	r := &Recipient{data: data.Without(keyPDFFields, keyTabs)}

	var err error
	if r.fields, err = buildGroups(data.Node(keyPDFFields)); err != nil {
		return nil, err
	}
	if r.tabs, err = buildGroups(data.Node(keyTabs)); err != nil {
		return nil, err
	}
	return r, nil
}

func buildGroups(raw *Attrs) ([]FieldGroup, error) {
	groups := make([]FieldGroup, 0, raw.Len())
	for _, typ := range raw.Keys() {
		group := FieldGroup{Type: typ}
		v, _ := raw.Get(typ)
		if v == nil {
			groups = append(groups, group)
			continue
		}
		items, ok := v.([]any)
		if !ok {
			return nil, pdferrors.Newf(pdferrors.ErrorTypeInvalidTemplate, "%s is not a list", typ)
		}
		for i, item := range items {
			attrs, ok := item.(*Attrs)
			if !ok {
				return nil, pdferrors.Newf(pdferrors.ErrorTypeInvalidTemplate,
					"%s entry %d is not a mapping", typ, i)
			}
			group.Fields = append(group.Fields, NewField(attrs))
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// RoleName returns the workflow role of the recipient
func (r *Recipient) RoleName() string { return r.data.String(keyRoleName) }

// RecipientID returns the vendor recipient id
func (r *Recipient) RecipientID() string { return r.data.String(keyRecipientID) }

// Data returns the residual metadata (everything but the groupings)
func (r *Recipient) Data() *Attrs { return r.data }

// FieldGroups returns the pdf-field groupings in declaration order
func (r *Recipient) FieldGroups() []FieldGroup { return r.fields }

// TabGroups returns the tab groupings in declaration order
func (r *Recipient) TabGroups() []FieldGroup { return r.tabs }

// Fields returns every pdf-form-capable field, type order then source order
func (r *Recipient) Fields() []*Field { return flatten(r.fields, nil) }

// Tabs returns every signing tab, type order then source order
func (r *Recipient) Tabs() []*Field { return flatten(r.tabs, nil) }

// FieldsForDocument returns the fields placed on the given document
func (r *Recipient) FieldsForDocument(documentID string) []*Field {
	return flatten(r.fields, onDocument(documentID))
}

// TabsForDocument returns the tabs placed on the given document
func (r *Recipient) TabsForDocument(documentID string) []*Field {
	return flatten(r.tabs, onDocument(documentID))
}

// FieldsForDocumentPage narrows FieldsForDocument to one zero-based page.
// A field whose geometry cannot be parsed fails the whole lookup.
func (r *Recipient) FieldsForDocumentPage(documentID string, pageIndex int) ([]*Field, error) {
	var out []*Field
	for _, f := range r.FieldsForDocument(documentID) {
		idx, err := f.PageIndex()
		if err != nil {
			return nil, err
		}
		if idx == pageIndex {
			out = append(out, f)
		}
	}
	return out, nil
}

// FieldByLabel finds a field or tab by its label
func (r *Recipient) FieldByLabel(label string) *Field {
	for _, f := range r.Fields() {
		if f.Label() == label {
			return f
		}
	}
	for _, f := range r.Tabs() {
		if f.Label() == label {
			return f
		}
	}
	return nil
}

// Merge copies extra metadata onto the recipient
func (r *Recipient) Merge(extra *Attrs) {
	r.data.Merge(extra)
}

// CompositeEntry returns the resubmission form: the residual metadata plus,
// for the tabs grouping only, the non-disabled entries of each type. Types
// left empty are omitted.
func (r *Recipient) CompositeEntry() *Attrs {
	entry := r.data.Clone()
	tabs := NewAttrs()
	for _, group := range r.tabs {
		var items []any
		for _, f := range group.Fields {
			if f.Disabled {
				continue
			}
			items = append(items, f.CompositeEntry())
		}
		if len(items) > 0 {
			tabs.Set(group.Type, items)
		}
	}
	entry.Set(keyTabs, tabs)
	return entry
}

func onDocument(documentID string) func(*Field) bool {
	return func(f *Field) bool { return f.DocumentID() == documentID }
}

func flatten(groups []FieldGroup, keep func(*Field) bool) []*Field {
	var out []*Field
	for _, group := range groups {
		for _, f := range group.Fields {
			if keep == nil || keep(f) {
				out = append(out, f)
			}
		}
	}
	return out
}
