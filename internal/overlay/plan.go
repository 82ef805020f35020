package overlay

import (
	"github.com/a3tai/mcp-esign-templates/internal/esign"
	"github.com/a3tai/mcp-esign-templates/internal/pdf/wrapper"
)

// Fixed mark geometry, in points
const (
	checkboxSize      = 13
	checkboxInset     = 2
	checkboxLineWidth = 2

	radioSize = 13
	// the dot is a zero-ish length line; readers drop truly zero-length ones
	radioDotDelta = 0.1
)

// ToPage converts a top-left, y-down offset of an element of the given
// height into a bottom-left PDF position on a page with the given box.
func ToPage(box *wrapper.Rectangle, x, y, height float64) Point {
	pageHeight := box.UpperRight.Y - box.LowerLeft.Y
	return Point{
		X: x + box.LowerLeft.X,
		Y: pageHeight - y + box.LowerLeft.Y - height,
	}
}

// target is a field to draw on the current page. Radios are expanded out of
// their group and flagged since they carry no tab_type of their own.
type target struct {
	field *esign.Field
	radio bool
}

// collect gathers the enabled fields of the recipients that land on pageIndex
func collect(documentID string, recipients []*esign.Recipient, pageIndex int) ([]target, error) {
	var out []target
	for _, r := range recipients {
		for _, f := range r.FieldsForDocument(documentID) {
			if f.Disabled {
				continue
			}
			if f.IsRadioGroup() {
				for _, radio := range f.Radios() {
					idx, err := radio.PageIndex()
					if err != nil {
						return nil, err
					}
					if idx == pageIndex {
						out = append(out, target{field: radio, radio: true})
					}
				}
				continue
			}
			idx, err := f.PageIndex()
			if err != nil {
				return nil, err
			}
			if idx == pageIndex {
				out = append(out, target{field: f})
			}
		}
	}
	return out, nil
}

// PlanPage returns the overlay operations for one zero-based page
func PlanPage(box *wrapper.Rectangle, documentID string, recipients []*esign.Recipient, pageIndex int) ([]Op, error) {
	targets, err := collect(documentID, recipients, pageIndex)
	if err != nil {
		return nil, err
	}
	var ops []Op
	for _, t := range targets {
		fieldOps, err := planTarget(box, t)
		if err != nil {
			return nil, err
		}
		ops = append(ops, fieldOps...)
	}
	return ops, nil
}

func planTarget(box *wrapper.Rectangle, t target) ([]Op, error) {
	g, err := t.field.Geometry()
	if err != nil {
		return nil, err
	}
	switch {
	case t.radio:
		return planRadio(box, t.field, g), nil
	case t.field.IsCheckbox():
		return planCheckbox(box, t.field, g), nil
	case t.field.IsText():
		return planText(box, t.field, g), nil
	case t.field.IsList():
		return planList(box, t.field, g), nil
	default:
		return nil, nil
	}
}

func planCheckbox(box *wrapper.Rectangle, f *esign.Field, g esign.Geometry) []Op {
	if !f.Selected() {
		return nil
	}
	origin := ToPage(box, float64(g.X), float64(g.Y), checkboxSize)

	lo := float64(checkboxInset + checkboxLineWidth/2)
	hi := float64(checkboxSize - checkboxInset - checkboxLineWidth/2)
	corner := func(dx, dy float64) Point {
		return Point{X: origin.X + dx, Y: origin.Y + dy}
	}

	return []Op{
		LineOp{From: corner(lo, lo), To: corner(hi, hi), Width: checkboxLineWidth, Color: BoxColor},
		LineOp{From: corner(hi, lo), To: corner(lo, hi), Width: checkboxLineWidth, Color: BoxColor},
	}
}

func planRadio(box *wrapper.Rectangle, f *esign.Field, g esign.Geometry) []Op {
	if !f.Selected() {
		return nil
	}
	half := radioSize / 2
	origin := ToPage(box, float64(g.X), float64(g.Y), radioSize)
	mid := Point{X: origin.X + float64(half), Y: origin.Y + float64(half)}

	return []Op{LineOp{
		From:  mid,
		To:    Point{X: mid.X + radioDotDelta, Y: mid.Y + radioDotDelta},
		Width: float64(half) * 1.5,
		Color: BoxColor,
	}}
}

func planText(box *wrapper.Rectangle, f *esign.Field, g esign.Geometry) []Op {
	value, ok := f.Value()
	if !ok || value == "" {
		return nil
	}
	// the vendor anchors text at its top-left, a PDF text baseline is bottom-left
	correctedY := g.Y - g.Height + g.FontSize
	return []Op{TextOp{
		At:    ToPage(box, float64(g.X), float64(correctedY), float64(g.Height)),
		Size:  float64(g.FontSize),
		Color: FontColor(g.FontColor),
		Text:  value,
	}}
}

func planList(box *wrapper.Rectangle, f *esign.Field, g esign.Geometry) []Op {
	item := f.SelectedItem()
	if item == nil || item.Name() == "" {
		return nil
	}
	return []Op{TextOp{
		At:    ToPage(box, float64(g.X), float64(g.Y), float64(g.Height)),
		Size:  float64(g.FontSize),
		Color: FontColor(g.FontColor),
		Text:  item.Name(),
	}}
}
