package esign

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	pdferrors "github.com/a3tai/mcp-esign-templates/internal/pdf/errors"
)

// Template attribute keys
const (
	keyRecipients      = "recipients"
	keyDocuments       = "documents"
	keyTemplateOptions = "template_options"
	keySequence        = "sequence"

	// SignersType is the recipient type of people who sign
	SignersType = "signers"

	// TemplateExt is the extension of a stored template
	TemplateExt = ".yml"
)

// RecipientGroup is the recipients of one type, in source order
type RecipientGroup struct {
	Type       string
	Recipients []*Recipient
}

// Template is the aggregate root: recipients grouped by type plus the
// documents they are placed on.
type Template struct {
	name       string
	baseDir    string
	data       *Attrs
	recipients []RecipientGroup
	documents  []*Document
	renderer   Renderer
}

// Option configures a Template
type Option func(*Template)

// WithRenderer sets the overlay renderer used by the template's documents
func WithRenderer(r Renderer) Option {
	return func(t *Template) {
		t.renderer = r
	}
}

// TemplatePath returns the location of the stored template name under baseDir
func TemplatePath(baseDir, name string) string {
	return filepath.Join(baseDir, name+TemplateExt)
}

// Load reads <baseDir>/<name>.yml
func Load(baseDir, name string, opts ...Option) (*Template, error) {
	data, err := ReadTemplateData(baseDir, name)
	if err != nil {
		return nil, err
	}
	t, err := Parse(baseDir, name, data, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %s: %w", TemplatePath(baseDir, name), err)
	}
	return t, nil
}

// ReadTemplateData decodes <baseDir>/<name>.yml without building the
// aggregate, so the tree can be cached and parsed again per use.
func ReadTemplateData(baseDir, name string) (*Attrs, error) {
	path := TemplatePath(baseDir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeIO, err).WithFile(path)
	}

	data := NewAttrs()
	if err := yaml.Unmarshal(raw, data); err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidTemplate, err).WithFile(path)
	}
	return data, nil
}

// Parse builds a template from an already decoded attribute tree
func Parse(baseDir, name string, data *Attrs, opts ...Option) (*Template, error) {
	t := &Template{
		name:    name,
		baseDir: baseDir,
		data:    data.Clone(),
	}
	for _, opt := range opts {
		opt(t)
	}

	recipients := t.data.Node(keyRecipients)
	for _, typ := range recipients.Keys() {
		group := RecipientGroup{Type: typ}
		for i, raw := range recipients.List(typ) {
			attrs, ok := raw.(*Attrs)
			if !ok {
				return nil, pdferrors.Newf(pdferrors.ErrorTypeInvalidTemplate,
					"recipients.%s[%d] is not a mapping", typ, i)
			}
			r, err := NewRecipient(attrs)
			if err != nil {
				return nil, fmt.Errorf("recipients.%s[%d]: %w", typ, i, err)
			}
			group.Recipients = append(group.Recipients, r)
		}
		t.recipients = append(t.recipients, group)
	}

	for i, raw := range t.data.List(keyDocuments) {
		attrs, ok := raw.(*Attrs)
		if !ok {
			return nil, pdferrors.Newf(pdferrors.ErrorTypeInvalidTemplate,
				"documents[%d] is not a mapping", i)
		}
		t.documents = append(t.documents, NewDocument(attrs, baseDir, t.renderer))
	}
	return t, nil
}

// Name returns the stored template name
func (t *Template) Name() string { return t.name }

// BaseDir returns the directory document paths resolve against
func (t *Template) BaseDir() string { return t.baseDir }

// DisplayName returns the vendor template name, falling back to the stored name
func (t *Template) DisplayName() string {
	if name := t.data.String(keyName); name != "" {
		return name
	}
	return t.name
}

// TemplateOptions returns the opaque template-level options
func (t *Template) TemplateOptions() *Attrs { return t.data.Node(keyTemplateOptions) }

// Recipients returns every recipient grouped by type in declaration order
func (t *Template) Recipients() []RecipientGroup { return t.recipients }

// AllRecipients returns every recipient, type order then source order
func (t *Template) AllRecipients() []*Recipient {
	return Flatten(t.recipients)
}

// Signers returns the recipients of type signers
func (t *Template) Signers() []*Recipient {
	for _, g := range t.recipients {
		if g.Type == SignersType {
			return g.Recipients
		}
	}
	return nil
}

// Documents returns the template's documents in order
func (t *Template) Documents() []*Document { return t.documents }

// Document looks up a document by id
func (t *Template) Document(documentID string) *Document {
	for _, d := range t.documents {
		if d.DocumentID() == documentID {
			return d
		}
	}
	return nil
}

// RecipientsForRoles returns every recipient whose role is in roles
func (t *Template) RecipientsForRoles(roles []string) []*Recipient {
	return Flatten(t.GroupsForRoles(roles))
}

// RecipientForRole returns the first recipient with the given role, or nil
func (t *Template) RecipientForRole(role string) *Recipient {
	for _, g := range t.recipients {
		for _, r := range g.Recipients {
			if r.RoleName() == role {
				return r
			}
		}
	}
	return nil
}

// GroupsForRoles keeps the type grouping while filtering by role. Types with
// no matching recipient are dropped.
func (t *Template) GroupsForRoles(roles []string) []RecipientGroup {
	want := make(map[string]bool, len(roles))
	for _, role := range roles {
		want[role] = true
	}
	var out []RecipientGroup
	for _, g := range t.recipients {
		group := RecipientGroup{Type: g.Type}
		for _, r := range g.Recipients {
			if want[r.RoleName()] {
				group.Recipients = append(group.Recipients, r)
			}
		}
		if len(group.Recipients) > 0 {
			out = append(out, group)
		}
	}
	return out
}

// ForEachRecipientTab calls fn for every tab and then every field of each
// recipient, in recipient order.
func (t *Template) ForEachRecipientTab(recipients []*Recipient, fn func(*Recipient, *Field)) {
	for _, r := range recipients {
		for _, f := range r.Tabs() {
			fn(r, f)
		}
		for _, f := range r.Fields() {
			fn(r, f)
		}
	}
}

// CompositeEntry builds the resubmission shape for the given recipients.
// Every document renders against the full flattened recipient set.
func (t *Template) CompositeEntry(groups []RecipientGroup, sequence int) (*Attrs, error) {
	entry := NewAttrs()
	entry.Set(keySequence, strconv.Itoa(sequence))

	recipients := NewAttrs()
	for _, g := range groups {
		if len(g.Recipients) == 0 {
			continue
		}
		items := make([]any, 0, len(g.Recipients))
		for _, r := range g.Recipients {
			items = append(items, r.CompositeEntry())
		}
		recipients.Set(g.Type, items)
	}
	if recipients.Len() > 0 {
		entry.Set(keyRecipients, recipients)
	}

	all := Flatten(groups)
	documents := make([]any, 0, len(t.documents))
	for _, d := range t.documents {
		doc, err := d.CompositeEntry(all)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", d.DocumentID(), err)
		}
		documents = append(documents, doc)
	}
	entry.Set(keyDocuments, documents)
	return entry, nil
}

// Flatten returns the recipients of every group, type order then source order
func Flatten(groups []RecipientGroup) []*Recipient {
	var out []*Recipient
	for _, g := range groups {
		out = append(out, g.Recipients...)
	}
	return out
}
