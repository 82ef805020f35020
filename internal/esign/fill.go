package esign

import (
	"sort"

	pdferrors "github.com/a3tai/mcp-esign-templates/internal/pdf/errors"
)

// Fill is a set of values to apply to a template before rendering, keyed by
// role name and then by field label. Disabled lists the labels per role that
// should be neither drawn nor resubmitted.
type Fill struct {
	Values   map[string]map[string]any `json:"values,omitempty" yaml:"values,omitempty"`
	Disabled map[string][]string       `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// IsEmpty reports whether the fill changes nothing
func (f *Fill) IsEmpty() bool {
	return f == nil || (len(f.Values) == 0 && len(f.Disabled) == 0)
}

// Set records one value
func (f *Fill) Set(role, label string, value any) {
	if f.Values == nil {
		f.Values = make(map[string]map[string]any)
	}
	if f.Values[role] == nil {
		f.Values[role] = make(map[string]any)
	}
	f.Values[role][label] = value
}

// Disable records one label to suppress
func (f *Fill) Disable(role, label string) {
	if f.Disabled == nil {
		f.Disabled = make(map[string][]string)
	}
	f.Disabled[role] = append(f.Disabled[role], label)
}

// Apply assigns the values and disabled flags to the template's fields.
// Every recipient holding the role receives the value. An unknown role or a
// label no recipient of that role has is an error; nothing is skipped quietly.
func (f *Fill) Apply(t *Template) error {
	if f.IsEmpty() {
		return nil
	}
	for _, role := range sortedKeys(f.Values) {
		values := f.Values[role]
		labels := make([]string, 0, len(values))
		for label := range values {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			fields, err := fieldsFor(t, role, label)
			if err != nil {
				return err
			}
			for _, field := range fields {
				field.SetValue(values[label])
			}
		}
	}
	for _, role := range sortedKeys(f.Disabled) {
		for _, label := range f.Disabled[role] {
			fields, err := fieldsFor(t, role, label)
			if err != nil {
				return err
			}
			for _, field := range fields {
				field.Disabled = true
			}
		}
	}
	return nil
}

func fieldsFor(t *Template, role, label string) ([]*Field, error) {
	recipients := t.RecipientsForRoles([]string{role})
	if len(recipients) == 0 {
		return nil, pdferrors.Newf(pdferrors.ErrorTypeInvalidTemplate, "unknown role %q", role).
			WithContext(t.Name())
	}
	var out []*Field
	for _, r := range recipients {
		if field := r.FieldByLabel(label); field != nil {
			out = append(out, field)
		}
	}
	if len(out) == 0 {
		return nil, pdferrors.Newf(pdferrors.ErrorTypeInvalidTemplate,
			"role %q has no field labelled %q", role, label).WithContext(t.Name())
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
