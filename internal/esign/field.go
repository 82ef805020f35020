package esign

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	pdferrors "github.com/a3tai/mcp-esign-templates/internal/pdf/errors"
)

// Attribute keys of a stored field
const (
	keyTabType     = "tab_type"
	keyXPosition   = "x_position"
	keyYPosition   = "y_position"
	keyWidth       = "width"
	keyHeight      = "height"
	keyFontSize    = "font_size"
	keyFontColor   = "font_color"
	keyPageNumber  = "page_number"
	keyDocumentID  = "document_id"
	keyRecipientID = "recipient_id"
	keySelected    = "selected"
	keyValue       = "value"
	keyRadios      = "radios"
	keyListItems   = "list_items"
	keyGroupName   = "group_name"
	keyTabLabel    = "tab_label"
	keyName        = "name"
	keyText        = "text"
)

// Defaults applied when an attribute is absent
const (
	DefaultFontSize  = 10
	DefaultFontColor = "black"
)

// Geometry is the corrected placement of a field. X and Y are top-left
// offsets in the vendor's y-down convention after the one-time correction.
type Geometry struct {
	X          int
	Y          int
	Width      int
	Height     int
	FontSize   int
	FontColor  string
	PageNumber int
}

// PageIndex returns the zero-based page index
func (g Geometry) PageIndex() int {
	return g.PageNumber - 1
}

// Field is one fillable element or signature tab.
//
// The raw attribute tree is deep-copied on construction; the geometric
// correction is computed once from it and never re-applied. Radio and list
// children are built eagerly and share the parent's copy of their attributes,
// so selecting a child is visible in the parent's raw data.
type Field struct {
	data     *Attrs
	kind     Kind
	subItem  bool
	children []*Field
	geometry Geometry
	geomErr  error

	// Disabled suppresses rendering and resubmission of the field
	// without removing it from its recipient. It is never persisted.
	Disabled bool
}

// NewField builds a field from its raw attributes
func NewField(data *Attrs) *Field {
	return newField(data.Clone(), false)
}

// NewSubItem builds a radio or list item. Sub-items always receive the
// pdf-field position correction regardless of their declared type.
func NewSubItem(data *Attrs) *Field {
	return newField(data.Clone(), true)
}

func newField(data *Attrs, subItem bool) *Field {
	if data == nil {
		data = NewAttrs()
	}
	f := &Field{
		data:    data,
		kind:    ParseKind(data.String(keyTabType)),
		subItem: subItem,
	}
	f.buildChildren()
	f.geometry, f.geomErr = f.parseGeometry()
	return f
}

func (f *Field) buildChildren() {
	var key string
	switch f.kind {
	case KindRadioGroup:
		key = keyRadios
	case KindList:
		key = keyListItems
	default:
		return
	}
	for i, raw := range f.data.List(key) {
		item, ok := raw.(*Attrs)
		if !ok {
			f.geomErr = pdferrors.Newf(pdferrors.ErrorTypeInvalidTemplate,
				"%s entry %d of %q is not a mapping", key, i, f.Label())
			continue
		}
		f.children = append(f.children, newField(item, true))
	}
}

func (f *Field) parseGeometry() (Geometry, error) {
	if f.geomErr != nil {
		return Geometry{}, f.geomErr
	}
	g := Geometry{FontColor: DefaultFontColor}
	var err error

	if g.X, _, err = f.intAttr(keyXPosition); err != nil {
		return Geometry{}, err
	}
	if g.Y, _, err = f.intAttr(keyYPosition); err != nil {
		return Geometry{}, err
	}
	dx, dy := f.kind.correction(f.subItem)
	g.X += dx
	g.Y += dy

	if g.FontSize, err = f.fontSize(); err != nil {
		return Geometry{}, err
	}
	var present bool
	if g.Height, present, err = f.intAttr(keyHeight); err != nil {
		return Geometry{}, err
	}
	if !present || g.Height == 0 {
		g.Height = g.FontSize
	}
	if g.Width, present, err = f.intAttr(keyWidth); err != nil {
		return Geometry{}, err
	}
	if !present {
		g.Width = g.Height
	}
	if color := strings.ToLower(strings.TrimSpace(f.data.String(keyFontColor))); color != "" {
		g.FontColor = color
	}

	if f.kind == KindRadioGroup {
		if len(f.children) > 0 {
			first, err := f.children[0].Geometry()
			if err != nil {
				return Geometry{}, err
			}
			g.PageNumber = first.PageNumber
		}
	} else if g.PageNumber, _, err = f.intAttr(keyPageNumber); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

func (f *Field) fontSize() (int, error) {
	raw, ok := f.data.Get(keyFontSize)
	if !ok || raw == nil {
		return DefaultFontSize, nil
	}
	s, isString := raw.(string)
	if !isString {
		size, _, err := f.intAttr(keyFontSize)
		return size, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultFontSize, nil
	}
	digits := strings.TrimLeftFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	size, err := strconv.Atoi(digits)
	if err != nil {
		return 0, f.malformed(keyFontSize, s)
	}
	return size, nil
}

// intAttr parses a numeric attribute. Absent, null and empty values report
// present=false; anything else that is not a number is a malformed geometry
// error rather than a silent zero.
func (f *Field) intAttr(key string) (value int, present bool, err error) {
	raw, ok := f.data.Get(key)
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch t := raw.(type) {
	case int:
		return t, true, nil
	case int64:
		return int(t), true, nil
	case uint64:
		if t > math.MaxInt {
			return 0, true, f.malformed(key, Canonical(raw))
		}
		return int(t), true, nil
	case float64:
		if i, ok := truncInt(t); ok {
			return i, true, nil
		}
		return 0, true, f.malformed(key, Canonical(raw))
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), true, nil
		}
		if fl, err := t.Float64(); err == nil {
			if i, ok := truncInt(fl); ok {
				return i, true, nil
			}
		}
		return 0, true, f.malformed(key, t.String())
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false, nil
		}
		if i, err := strconv.Atoi(s); err == nil {
			return i, true, nil
		}
		if fl, err := strconv.ParseFloat(s, 64); err == nil {
			if i, ok := truncInt(fl); ok {
				return i, true, nil
			}
		}
		return 0, true, f.malformed(key, s)
	default:
		return 0, true, f.malformed(key, Canonical(raw))
	}
}

// truncInt drops the fraction of v. NaN and values outside the int range
// report false.
func truncInt(v float64) (int, bool) {
	v = math.Trunc(v)
	if math.IsNaN(v) || v < math.MinInt || v >= math.MaxInt {
		return 0, false
	}
	return int(v), true
}

func (f *Field) malformed(key, raw string) error {
	return pdferrors.Newf(pdferrors.ErrorTypeMalformedGeometry,
		"%s is not numeric: %q", key, raw).WithContext(f.Label())
}

// Geometry returns the corrected placement, or the parse error of the first
// malformed positional attribute.
func (f *Field) Geometry() (Geometry, error) {
	return f.geometry, f.geomErr
}

// PageIndex returns the zero-based page the field is drawn on. For a radio
// group this is the page of its first radio.
func (f *Field) PageIndex() (int, error) {
	if f.geomErr != nil {
		return 0, f.geomErr
	}
	return f.geometry.PageIndex(), nil
}

// Kind returns the field variant
func (f *Field) Kind() Kind { return f.kind }

// Data returns the raw attribute tree backing the field
func (f *Field) Data() *Attrs { return f.data }

// IsSubItem reports whether the field is a radio or list item
func (f *Field) IsSubItem() bool { return f.subItem }

func (f *Field) IsCheckbox() bool   { return f.kind == KindCheckbox }
func (f *Field) IsRadioGroup() bool { return f.kind == KindRadioGroup }
func (f *Field) IsText() bool       { return f.kind == KindText }
func (f *Field) IsList() bool       { return f.kind == KindList }
func (f *Field) IsSignature() bool  { return f.kind.IsSignature() }
func (f *Field) IsPDFField() bool   { return f.kind.IsPDFField() }

// RecipientID returns the owning recipient id
func (f *Field) RecipientID() string { return f.data.String(keyRecipientID) }

// DocumentID returns the id of the document the field is placed on
func (f *Field) DocumentID() string { return f.data.String(keyDocumentID) }

// Label returns the group name when present, otherwise the tab label
func (f *Field) Label() string {
	if name := f.data.String(keyGroupName); name != "" {
		return name
	}
	return f.data.String(keyTabLabel)
}

// Name returns the display name, falling back to the item text
func (f *Field) Name() string {
	if name := f.data.String(keyName); name != "" {
		return name
	}
	return f.data.String(keyText)
}

// Selected reports the stored selection flag
func (f *Field) Selected() bool {
	return f.data.String(keySelected) == "true"
}

// SetSelected stores the selection flag in its persisted string form
func (f *Field) SetSelected(selected bool) {
	f.data.Set(keySelected, strconv.FormatBool(selected))
}

// Radios returns the radio children of a radio group
func (f *Field) Radios() []*Field {
	if f.kind != KindRadioGroup {
		return nil
	}
	return f.children
}

// ListItems returns the items of a list
func (f *Field) ListItems() []*Field {
	if f.kind != KindList {
		return nil
	}
	return f.children
}

// SelectedItem returns the first selected child of a radio group or list.
// When the source marks several children selected the first one wins.
func (f *Field) SelectedItem() *Field {
	if !f.kind.HasChildren() {
		return nil
	}
	for _, child := range f.children {
		if child.Selected() {
			return child
		}
	}
	return nil
}

// SelectedCount returns how many children are marked selected, so callers
// that want to reject ambiguous source data can do so.
func (f *Field) SelectedCount() int {
	n := 0
	for _, child := range f.children {
		if child.Selected() {
			n++
		}
	}
	return n
}

// Value returns the effective value in canonical string form and whether one
// is present. Checkboxes report "true"/"false"; radio groups and lists report
// the value of the selected child.
func (f *Field) Value() (string, bool) {
	switch f.kind {
	case KindCheckbox:
		return strconv.FormatBool(f.Selected()), true
	case KindRadioGroup, KindList:
		item := f.SelectedItem()
		if item == nil {
			return "", false
		}
		return item.Value()
	default:
		if !f.data.Has(keyValue) {
			return "", false
		}
		return f.data.String(keyValue), true
	}
}

// SetValue assigns a value. Values are compared and stored by their
// canonical string form (see Canonical), so selecting a radio by 2 or "2" is
// the same thing. For radio groups and lists the first child whose value
// matches is selected and every other child is cleared; no match clears all.
func (f *Field) SetValue(v any) {
	s := Canonical(v)
	switch f.kind {
	case KindCheckbox:
		checked, err := strconv.ParseBool(s)
		f.SetSelected(err == nil && checked)
	case KindRadioGroup, KindList:
		matched := false
		for _, child := range f.children {
			value, _ := child.Value()
			hit := !matched && value == s
			child.SetSelected(hit)
			matched = matched || hit
		}
	default:
		f.data.Set(keyValue, s)
	}
}

// Merge copies extra attributes into the raw data. Geometry is not
// recomputed; positional changes require building a new Field.
func (f *Field) Merge(extra *Attrs) {
	f.data.Merge(extra)
}

// CompositeEntry returns the raw persisted form used for resubmission
func (f *Field) CompositeEntry() *Attrs {
	return f.data.Clone()
}
