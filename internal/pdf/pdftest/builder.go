// Package pdftest builds small, valid PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Letter is the default media box
var Letter = []float64{0, 0, 612, 792}

// Page describes one page. A nil MediaBox inherits the document's box from
// the page tree; an empty Content leaves the page without a Contents entry.
type Page struct {
	MediaBox []float64
	Content  string
}

// Doc describes a whole document
type Doc struct {
	MediaBox []float64
	Pages    []Page
}

// Minimal returns a document of n empty letter pages
func Minimal(n int) []byte {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Page{MediaBox: Letter}
	}
	return Build(Doc{Pages: pages})
}

// Build serializes doc with a classic xref table
func Build(doc Doc) []byte {
	if doc.MediaBox == nil {
		doc.MediaBox = Letter
	}

	// object numbers: 1 catalog, 2 page tree, then page and content per page
	var objects []string
	pageRefs := make([]string, len(doc.Pages))
	next := 3
	type planned struct {
		page, content int
	}
	plan := make([]planned, len(doc.Pages))
	for i, p := range doc.Pages {
		plan[i].page = next
		next++
		if p.Content != "" {
			plan[i].content = next
			next++
		}
		pageRefs[i] = fmt.Sprintf("%d 0 R", plan[i].page)
	}

	objects = append(objects,
		"<</Type/Catalog/Pages 2 0 R>>",
		fmt.Sprintf("<</Type/Pages/Kids[%s]/Count %d/MediaBox%s>>",
			strings.Join(pageRefs, " "), len(doc.Pages), box(doc.MediaBox)),
	)
	for i, p := range doc.Pages {
		var dict strings.Builder
		dict.WriteString("<</Type/Page/Parent 2 0 R/Resources<<>>")
		if p.MediaBox != nil {
			dict.WriteString("/MediaBox" + box(p.MediaBox))
		}
		if plan[i].content != 0 {
			fmt.Fprintf(&dict, "/Contents %d 0 R", plan[i].content)
		}
		dict.WriteString(">>")
		objects = append(objects, dict.String())
		if plan[i].content != 0 {
			objects = append(objects, fmt.Sprintf("<</Length %d>>\nstream\n%s\nendstream", len(p.Content), p.Content))
		}
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	fmt.Fprintf(&buf, "%010d %05d f \r\n", 0, 65535)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d %05d n \r\n", off, 0)
	}
	fmt.Fprintf(&buf, "trailer\n<</Size %d/Root 1 0 R>>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefOffset)
	return buf.Bytes()
}

func box(b []float64) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
