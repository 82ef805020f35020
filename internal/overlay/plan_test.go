package overlay

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-esign-templates/internal/esign"
	pdferrors "github.com/a3tai/mcp-esign-templates/internal/pdf/errors"
	"github.com/a3tai/mcp-esign-templates/internal/pdf/wrapper"
)

var letter = wrapper.NewRectangle(0, 0, 612, 792)

func recipientWith(t *testing.T, group string, fields ...*esign.Attrs) *esign.Recipient {
	t.Helper()
	items := make([]any, 0, len(fields))
	for _, f := range fields {
		f.Set("document_id", "1")
		items = append(items, f)
	}
	r, err := esign.NewRecipient(esign.AttrsOf(
		"role_name", "Buyer",
		"pdf_fields", esign.AttrsOf(group, items),
	))
	require.NoError(t, err)
	return r
}

func checkbox(selected string) *esign.Attrs {
	return esign.AttrsOf(
		"tab_type", "checkbox", "tab_label", "agree",
		"page_number", "1", "x_position", "50", "y_position", "60",
		"selected", selected,
	)
}

func text(value string) *esign.Attrs {
	return esign.AttrsOf(
		"tab_type", "text", "tab_label", "name",
		"page_number", "1", "x_position", "100", "y_position", "200",
		"height", "20", "font_size", "size12", "font_color", "NavyBlue",
		"value", value,
	)
}

func TestToPage(t *testing.T) {
	p := ToPage(letter, 10, 20, 13)
	assert.Equal(t, Point{X: 10, Y: 759}, p)

	// pages need not start at the origin
	offset := wrapper.NewRectangle(10, 20, 622, 812)
	p = ToPage(offset, 5, 30, 10)
	assert.Equal(t, Point{X: 15, Y: 772}, p)
}

func TestPlanPage_CheckboxScenario(t *testing.T) {
	ops, err := PlanPage(letter, "1", []*esign.Recipient{recipientWith(t, "checkbox_tabs", checkbox("false"))}, 0)
	require.NoError(t, err)
	assert.Empty(t, ops)

	ops, err = PlanPage(letter, "1", []*esign.Recipient{recipientWith(t, "checkbox_tabs", checkbox("true"))}, 0)
	require.NoError(t, err)
	require.Len(t, ops, 2)

	assert.Equal(t, LineOp{From: Point{56, 721}, To: Point{63, 728}, Width: 2, Color: BoxColor}, ops[0])
	assert.Equal(t, LineOp{From: Point{63, 721}, To: Point{56, 728}, Width: 2, Color: BoxColor}, ops[1])
}

func TestPlanPage_TextScenario(t *testing.T) {
	ops, err := PlanPage(letter, "1", []*esign.Recipient{recipientWith(t, "text_tabs", text(""))}, 0)
	require.NoError(t, err)
	assert.Empty(t, ops)

	ops, err = PlanPage(letter, "1", []*esign.Recipient{recipientWith(t, "text_tabs", text("Jane Doe"))}, 0)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	// corrected x = 103, corrected y = 201; text y = 201 - 20 + 12 = 193
	want := TextOp{
		At:    Point{X: 103, Y: 792 - 193 - 20},
		Size:  12,
		Color: FontColors["navyblue"],
		Text:  "Jane Doe",
	}
	assert.Equal(t, want, ops[0])
}

func TestPlanPage_TextWithoutValue(t *testing.T) {
	field := text("")
	field.Delete("value")
	ops, err := PlanPage(letter, "1", []*esign.Recipient{recipientWith(t, "text_tabs", field)}, 0)
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestPlanPage_RadioScenario(t *testing.T) {
	radios := []any{}
	for i, sel := range []string{"false", "true", "false"} {
		radios = append(radios, esign.AttrsOf(
			"page_number", "1",
			"x_position", 100+i*20,
			"y_position", "200",
			"value", i,
			"selected", sel,
		))
	}
	group := esign.AttrsOf("tab_type", "radiogroup", "group_name", "choice", "radios", radios)

	ops, err := PlanPage(letter, "1", []*esign.Recipient{recipientWith(t, "radio_group_tabs", group)}, 0)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	// second radio: corrected (123, 201), box origin y = 792 - 201 - 13
	want := LineOp{
		From:  Point{X: 129, Y: 584},
		To:    Point{X: 129.1, Y: 584.1},
		Width: 9,
		Color: BoxColor,
	}
	got := ops[0].(LineOp)
	assert.Equal(t, want.From, got.From)
	assert.InDelta(t, want.To.X, got.To.X, 1e-9)
	assert.InDelta(t, want.To.Y, got.To.Y, 1e-9)
	assert.Equal(t, want.Width, got.Width)
	assert.Equal(t, want.Color, got.Color)
}

func TestPlanPage_RadiosOnTheirOwnPages(t *testing.T) {
	group := esign.AttrsOf("tab_type", "radiogroup", "radios", []any{
		esign.AttrsOf("page_number", "1", "selected", "true"),
		esign.AttrsOf("page_number", "2", "selected", "true"),
	})
	r := recipientWith(t, "radio_group_tabs", group)

	for page := 0; page < 2; page++ {
		ops, err := PlanPage(letter, "1", []*esign.Recipient{r}, page)
		require.NoError(t, err)
		assert.Len(t, ops, 1, "page %d", page)
	}
}

func TestPlanPage_List(t *testing.T) {
	list := esign.AttrsOf(
		"tab_type", "list", "tab_label", "color",
		"page_number", "1", "x_position", "10", "y_position", "40", "height", "15",
		"list_items", []any{
			esign.AttrsOf("text", "Red", "value", "r", "selected", "false"),
			esign.AttrsOf("text", "Blue", "value", "b", "selected", "true"),
		},
	)
	ops, err := PlanPage(letter, "1", []*esign.Recipient{recipientWith(t, "list_tabs", list)}, 0)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	// lists skip the text baseline correction
	assert.Equal(t, TextOp{
		At:    Point{X: 13, Y: 792 - 41 - 15},
		Size:  10,
		Color: FontColors["black"],
		Text:  "Blue",
	}, ops[0])

	list.Set("list_items", []any{esign.AttrsOf("text", "Red", "selected", "false")})
	ops, err = PlanPage(letter, "1", []*esign.Recipient{recipientWith(t, "list_tabs", list)}, 0)
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestPlanPage_Filtering(t *testing.T) {
	other := text("elsewhere")
	other.Set("page_number", "2")
	r := recipientWith(t, "text_tabs", text("here"), other)

	ops, err := PlanPage(letter, "1", []*esign.Recipient{r}, 0)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "here", ops[0].(TextOp).Text)

	// other documents are ignored
	ops, err = PlanPage(letter, "2", []*esign.Recipient{r}, 0)
	require.NoError(t, err)
	assert.Empty(t, ops)

	// disabled fields are skipped
	r.Fields()[0].Disabled = true
	ops, err = PlanPage(letter, "1", []*esign.Recipient{r}, 0)
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestPlanPage_MalformedGeometry(t *testing.T) {
	bad := text("x")
	bad.Set("x_position", "left")
	_, err := PlanPage(letter, "1", []*esign.Recipient{recipientWith(t, "text_tabs", bad)}, 0)
	assert.ErrorIs(t, err, pdferrors.ErrMalformedGeometry)
}

func TestFontColor(t *testing.T) {
	assert.Equal(t, FontColors["black"], FontColor("chartreuse"))
	assert.Equal(t, FontColors["black"], FontColor(""))
	assert.Equal(t, RGB{219, 17, 17}, FontColor("BrightRed"))
	assert.Equal(t, RGB{30, 30, 30}, FontColor("brightblue"))
	assert.Len(t, FontColors, 10)
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, LineOp{From: Point{1, 2}, To: Point{3.25, 4}, Width: 2, Color: BoxColor}.Encode(&buf, "F"))
	assert.Equal(t, "q\n2 w 1 J 1 j\n0.1176 0.1176 0.1176 RG\n1 2 m 3.25 4 l S\nQ\n", buf.String())

	buf.Reset()
	require.NoError(t, TextOp{At: Point{10, 20}, Size: 12, Color: RGB{255, 0, 0}, Text: "a(b)\\ é"}.Encode(&buf, "EsignCourier"))
	assert.Equal(t, "q\nBT\n/EsignCourier 12 Tf\n1 0 0 rg\n10 20 Td\n(a\\(b\\)\\\\ \xe9) Tj\nET\nQ\n", buf.String())

	buf.Reset()
	assert.Error(t, TextOp{Text: "x"}.Encode(&buf, ""))

	out, err := EncodeAll(nil, "F")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEscapeText(t *testing.T) {
	assert.Equal(t, []byte("\\011?"), escapeText("\t中"))
	assert.Equal(t, []byte{0x80}, escapeText("€"))
}
