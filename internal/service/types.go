package service

import (
	"github.com/a3tai/mcp-esign-templates/internal/esign"
)

// ImportRequest converts a vendor export into a stored template
type ImportRequest struct {
	Source string `json:"source"`
	Name   string `json:"name"`
}

// ImportResult describes the stored template
type ImportResult struct {
	Name       string          `json:"name"`
	Path       string          `json:"path"`
	Documents  []DocumentInfo  `json:"documents"`
	Recipients []RecipientInfo `json:"recipients"`
}

// InfoRequest names a stored template
type InfoRequest struct {
	Name string `json:"name"`
}

// TemplateInfo summarizes a stored template
type TemplateInfo struct {
	Name            string          `json:"name"`
	DisplayName     string          `json:"display_name"`
	TemplateOptions *esign.Attrs    `json:"template_options,omitempty"`
	Documents       []DocumentInfo  `json:"documents"`
	Recipients      []RecipientInfo `json:"recipients"`
}

// DocumentInfo summarizes one document of a template
type DocumentInfo struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	Pages      int    `json:"pages"`
	Static     bool   `json:"static"`
}

// RecipientInfo summarizes one recipient and the fields it can fill
type RecipientInfo struct {
	Type        string      `json:"type"`
	RoleName    string      `json:"role_name"`
	RecipientID string      `json:"recipient_id"`
	Fields      []FieldInfo `json:"fields"`
	Tabs        int         `json:"tabs"`
}

// FieldInfo summarizes one fillable field
type FieldInfo struct {
	Label      string   `json:"label"`
	Kind       string   `json:"kind"`
	DocumentID string   `json:"document_id"`
	Page       int      `json:"page"`
	Value      string   `json:"value,omitempty"`
	Options    []string `json:"options,omitempty"`
}

// RenderRequest fills a template and writes one PDF per document
type RenderRequest struct {
	Name      string      `json:"name"`
	Roles     []string    `json:"roles,omitempty"`
	Fill      *esign.Fill `json:"fill,omitempty"`
	OutputDir string      `json:"output_dir,omitempty"`
}

// RenderResult lists the files written
type RenderResult struct {
	Name      string             `json:"name"`
	OutputDir string             `json:"output_dir"`
	Documents []RenderedDocument `json:"documents"`
}

// RenderedDocument is one written PDF
type RenderedDocument struct {
	DocumentID string   `json:"document_id"`
	Path       string   `json:"path"`
	Static     bool     `json:"static"`
	Size       int      `json:"size"`
	Warnings   []string `json:"warnings,omitempty"`
}

// CompositeRequest builds the resubmission entry for a template
type CompositeRequest struct {
	Name     string      `json:"name"`
	Roles    []string    `json:"roles,omitempty"`
	Fill     *esign.Fill `json:"fill,omitempty"`
	Sequence int         `json:"sequence"`
	Isolated bool        `json:"isolated"`
	Camelize bool        `json:"camelize"`
}

// CompositeResult carries the entry
type CompositeResult struct {
	Name     string       `json:"name"`
	Isolated bool         `json:"isolated"`
	Entry    *esign.Attrs `json:"entry"`
}

// InspectRequest names a PDF to read back
type InspectRequest struct {
	Path string `json:"path"`
}

// InspectResult holds the text of every page
type InspectResult struct {
	Path      string     `json:"path"`
	PageCount int        `json:"page_count"`
	Pages     []PageText `json:"pages"`
}

// PageText is the extracted text of one page
type PageText struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// ListResult names the stored templates
type ListResult struct {
	Directory string   `json:"directory"`
	Templates []string `json:"templates"`
}
