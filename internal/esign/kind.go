package esign

// Kind is the closed set of field variants. The vendor's tab_type string is
// only consulted once, when a Field is built.
type Kind int

const (
	KindOther Kind = iota
	KindText
	KindCheckbox
	KindRadioGroup
	KindList
	KindSignature
	KindInitial
)

// Vendor tab_type discriminants
const (
	TabTypeText       = "text"
	TabTypeCheckbox   = "checkbox"
	TabTypeRadioGroup = "radiogroup"
	TabTypeList       = "list"
	TabTypeSignature  = "signhere"
	TabTypeInitial    = "initialhere"
)

// ParseKind maps a tab_type discriminant onto a Kind
func ParseKind(tabType string) Kind {
	switch tabType {
	case TabTypeText:
		return KindText
	case TabTypeCheckbox:
		return KindCheckbox
	case TabTypeRadioGroup:
		return KindRadioGroup
	case TabTypeList:
		return KindList
	case TabTypeSignature:
		return KindSignature
	case TabTypeInitial:
		return KindInitial
	default:
		return KindOther
	}
}

// String returns the tab_type discriminant for the kind
func (k Kind) String() string {
	switch k {
	case KindText:
		return TabTypeText
	case KindCheckbox:
		return TabTypeCheckbox
	case KindRadioGroup:
		return TabTypeRadioGroup
	case KindList:
		return TabTypeList
	case KindSignature:
		return TabTypeSignature
	case KindInitial:
		return TabTypeInitial
	default:
		return "other"
	}
}

// IsPDFField reports whether the kind can be expressed as a plain PDF form
// field (and therefore needs an overlay to be visible).
func (k Kind) IsPDFField() bool {
	switch k {
	case KindText, KindCheckbox, KindRadioGroup, KindList:
		return true
	default:
		return false
	}
}

// IsSignature reports whether the kind is a signature or initial mark
func (k Kind) IsSignature() bool {
	return k == KindSignature || k == KindInitial
}

// HasChildren reports whether the kind owns selectable child items
func (k Kind) HasChildren() bool {
	return k == KindRadioGroup || k == KindList
}

// Geometric corrections between the vendor's recorded anchor and the PDF
// anchor of the drawn mark.
const (
	fieldOffsetX     = 3
	fieldOffsetY     = 1
	signatureOffsetY = -21
)

// correction returns the offset applied once to the raw x/y of a field of
// this kind. Sub-items (radios, list items) always get the field offset.
func (k Kind) correction(subItem bool) (dx, dy int) {
	switch {
	case subItem || k.IsPDFField():
		return fieldOffsetX, fieldOffsetY
	case k.IsSignature():
		return 0, signatureOffsetY
	default:
		return 0, 0
	}
}
