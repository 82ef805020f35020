package overlay

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/encoding/charmap"
)

// Point is a position in PDF user space (bottom-left origin, y up)
type Point struct {
	X float64
	Y float64
}

// RGB is a color with 0-255 components
type RGB struct {
	R uint8
	G uint8
	B uint8
}

// Op is one drawing operation of a page overlay
type Op interface {
	// Encode writes the content stream operators for the op. font is the
	// page resource name of the overlay font.
	Encode(buf *bytes.Buffer, font string) error
}

// LineOp strokes a straight segment with round caps and joins
type LineOp struct {
	From  Point
	To    Point
	Width float64
	Color RGB
}

// TextOp shows a single line of text at a baseline position
type TextOp struct {
	At    Point
	Size  float64
	Color RGB
	Text  string
}

// Line cap and join style 1 is round
const roundStyle = 1

// Encode implements Op
func (l LineOp) Encode(buf *bytes.Buffer, _ string) error {
	fmt.Fprintf(buf, "q\n%s w %d J %d j\n%s RG\n%s %s m %s %s l S\nQ\n",
		num(l.Width), roundStyle, roundStyle,
		color(l.Color),
		num(l.From.X), num(l.From.Y), num(l.To.X), num(l.To.Y))
	return nil
}

// Encode implements Op
func (t TextOp) Encode(buf *bytes.Buffer, font string) error {
	if font == "" {
		return fmt.Errorf("text %q drawn without a font", t.Text)
	}
	fmt.Fprintf(buf, "q\nBT\n/%s %s Tf\n%s rg\n%s %s Td\n",
		font, num(t.Size), color(t.Color), num(t.At.X), num(t.At.Y))
	buf.WriteByte('(')
	buf.Write(escapeText(t.Text))
	buf.WriteString(") Tj\nET\nQ\n")
	return nil
}

// EncodeAll concatenates the operators of ops into one content stream
func EncodeAll(ops []Op, font string) ([]byte, error) {
	var buf bytes.Buffer
	for _, op := range ops {
		if err := op.Encode(&buf, font); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func color(c RGB) string {
	return num(float64(c.R)/255) + " " + num(float64(c.G)/255) + " " + num(float64(c.B)/255)
}

// num prints at most four decimals and never a negative zero
func num(f float64) string {
	r := math.Round(f*10000) / 10000
	if r == 0 {
		return "0"
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// escapeText encodes s as WinAnsi bytes for a literal string. Runes the
// encoding has no slot for become '?'.
func escapeText(s string) []byte {
	var out []byte
	for _, r := range s {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		switch {
		case b == '(' || b == ')' || b == '\\':
			out = append(out, '\\', b)
		case b < 0x20 || b == 0x7f:
			out = append(out, []byte(fmt.Sprintf("\\%03o", b))...)
		default:
			out = append(out, b)
		}
	}
	return out
}
