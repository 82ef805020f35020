// Package service orchestrates the template components behind one facade.
// Every path it is handed is confined to the configured template directory.
package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/a3tai/mcp-esign-templates/internal/converter"
	"github.com/a3tai/mcp-esign-templates/internal/esign"
	"github.com/a3tai/mcp-esign-templates/internal/overlay"
	pdferrors "github.com/a3tai/mcp-esign-templates/internal/pdf/errors"
	"github.com/a3tai/mcp-esign-templates/internal/pdf/security"
	"github.com/a3tai/mcp-esign-templates/internal/pdf/wrapper"
	"github.com/a3tai/mcp-esign-templates/internal/worker"
)

// DefaultOutputDir is where rendered PDFs go when a request names none,
// relative to the template directory.
const DefaultOutputDir = "out"

// Options configures a Service
type Options struct {
	TemplateDir string
	MaxFileSize int64
	CacheSize   int
	// Runner composes isolated requests; nil disables the isolated path
	Runner worker.Runner
}

// Service handles template operations by orchestrating the esign model, the
// overlay renderer and the PDF wrappers.
type Service struct {
	maxFileSize   int64
	pathValidator *security.PathValidator
	library       wrapper.PDFLibrary
	textReader    wrapper.TextReader
	renderer      *overlay.Renderer
	runner        worker.Runner
	templates     *lruCache[cachedTemplate]
}

// cachedTemplate is a decoded template tree and the mtime it was read at.
// The aggregate is rebuilt per request because fills mutate it.
type cachedTemplate struct {
	modTime time.Time
	data    *esign.Attrs
}

// NewService creates a new service with all components
func NewService(opts Options) (*Service, error) {
	pathValidator, err := security.NewPathValidator(opts.TemplateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	factory := wrapper.NewPDFLibraryFactory()
	if opts.MaxFileSize > 0 {
		factory = wrapper.NewPDFLibraryFactoryWithConfig(wrapper.FactoryConfig{MaxFileSize: opts.MaxFileSize})
	}
	library, err := factory.Create(wrapper.LibraryPDFCPU)
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF library: %w", err)
	}
	textReader, err := factory.CreateTextReader(wrapper.LibraryLedongthuc)
	if err != nil {
		return nil, fmt.Errorf("failed to create text reader: %w", err)
	}

	return &Service{
		maxFileSize:   factory.GetConfig().MaxFileSize,
		pathValidator: pathValidator,
		library:       library,
		textReader:    textReader,
		renderer:      overlay.NewRenderer(library),
		runner:        opts.Runner,
		templates:     newLRUCache[cachedTemplate](opts.CacheSize),
	}, nil
}

// TemplateDir returns the absolute template directory
func (s *Service) TemplateDir() string {
	return s.pathValidator.GetRootDirectory()
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// CacheStats reports template cache usage
func (s *Service) CacheStats() CacheStats {
	return s.templates.stats()
}

// Import converts a vendor JSON export into <dir>/<name>.yml
func (s *Service) Import(req ImportRequest) (*ImportResult, error) {
	source, err := s.pathValidator.NormalizePath(req.Source)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if err := s.pathValidator.ValidateTemplateName(req.Name); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if err := s.checkSize(source); err != nil {
		return nil, err
	}
	root, err := s.pathValidator.EnsureDirectory(".")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare template directory: %w", err)
	}

	t, err := converter.ConvertFile(source, root, req.Name, esign.WithRenderer(s.renderer))
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", req.Source, err)
	}
	s.templates.remove(req.Name)

	info := s.describe(t)
	return &ImportResult{
		Name:       req.Name,
		Path:       esign.TemplatePath(root, req.Name),
		Documents:  info.Documents,
		Recipients: info.Recipients,
	}, nil
}

// List returns the names of the stored templates
func (s *Service) List() (*ListResult, error) {
	root := s.TemplateDir()
	entries, err := os.ReadDir(root)
	if err != nil && !os.IsNotExist(err) {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeIO, err).WithFile(root)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != esign.TemplateExt {
			continue
		}
		name := strings.TrimSuffix(e.Name(), esign.TemplateExt)
		if s.pathValidator.ValidateTemplateName(name) == nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return &ListResult{Directory: root, Templates: names}, nil
}

// Info describes a stored template
func (s *Service) Info(req InfoRequest) (*TemplateInfo, error) {
	t, err := s.loadTemplate(req.Name)
	if err != nil {
		return nil, err
	}
	return s.describe(t), nil
}

// Render fills a template and writes every document into the output
// directory as <name>_<i>_filled.pdf.
func (s *Service) Render(req RenderRequest) (*RenderResult, error) {
	t, err := s.prepare(req.Name, req.Fill)
	if err != nil {
		return nil, err
	}
	outDir := req.OutputDir
	if outDir == "" {
		outDir = DefaultOutputDir
	}
	outDir, err = s.pathValidator.EnsureDirectory(outDir)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	recipients := esign.Flatten(s.groups(t, req.Roles))
	result := &RenderResult{Name: req.Name, OutputDir: outDir}
	for i, doc := range t.Documents() {
		rendered, err := s.renderDocument(doc, recipients, filepath.Join(outDir, fmt.Sprintf("%s_%d_filled.pdf", req.Name, i)))
		if err != nil {
			return nil, fmt.Errorf("failed to render document %s: %w", doc.DocumentID(), err)
		}
		result.Documents = append(result.Documents, *rendered)
	}
	log.Printf("Rendered %d documents of %s into %s", len(result.Documents), req.Name, outDir)
	return result, nil
}

func (s *Service) renderDocument(doc *esign.Document, recipients []*esign.Recipient, target string) (*RenderedDocument, error) {
	size, report, err := doc.SaveWithReport(target, recipients)
	if err != nil {
		return nil, err
	}
	rendered := &RenderedDocument{
		DocumentID: doc.DocumentID(),
		Path:       target,
		Static:     doc.IsStatic(recipients),
		Size:       size,
	}
	for _, w := range report.Warnings {
		rendered.Warnings = append(rendered.Warnings, w.Error())
	}
	return rendered, nil
}

// Composite builds the resubmission entry, in this process or, when
// req.Isolated is set, in a worker process.
func (s *Service) Composite(ctx context.Context, req CompositeRequest) (*CompositeResult, error) {
	wreq := worker.Request{
		TemplateDir:  s.TemplateDir(),
		TemplateName: req.Name,
		Roles:        req.Roles,
		Fill:         req.Fill,
		Sequence:     req.Sequence,
	}

	var (
		entry *esign.Attrs
		err   error
	)
	if req.Isolated {
		if s.runner == nil {
			return nil, pdferrors.New(pdferrors.ErrorTypeWorkerCrashed, "isolated composition is not configured")
		}
		entry, err = s.runner.Run(ctx, wreq)
	} else {
		entry, err = s.Compose(ctx, wreq)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to compose %s: %w", req.Name, err)
	}

	if req.Camelize {
		entry = converter.CamelizeKeys(entry)
	}
	return &CompositeResult{Name: req.Name, Isolated: req.Isolated, Entry: entry}, nil
}

// Compose builds the composite entry for a worker request in this process.
// It is the worker.ComposeFunc served in worker mode.
func (s *Service) Compose(_ context.Context, req worker.Request) (*esign.Attrs, error) {
	if req.TemplateDir != "" {
		if err := s.pathValidator.ValidatePath(req.TemplateDir); err != nil {
			return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidPayload, err)
		}
	}
	t, err := s.prepare(req.TemplateName, req.Fill)
	if err != nil {
		return nil, err
	}
	return t.CompositeEntry(s.groups(t, req.Roles), req.Sequence)
}

// Inspect extracts the text of every page of a PDF, usually a rendered one
func (s *Service) Inspect(req InspectRequest) (*InspectResult, error) {
	path, err := s.pathValidator.NormalizePath(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if err := s.checkSize(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeIO, err).WithFile(path)
	}

	texts, err := s.textReader.PageTexts(data)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypePDFModel, err).WithFile(path)
	}
	result := &InspectResult{Path: path, PageCount: len(texts)}
	for i, text := range texts {
		result.Pages = append(result.Pages, PageText{Number: i + 1, Text: text})
	}
	return result, nil
}

// prepare loads a fresh template aggregate and applies the fill to it
func (s *Service) prepare(name string, fill *esign.Fill) (*esign.Template, error) {
	t, err := s.loadTemplate(name)
	if err != nil {
		return nil, err
	}
	if err := fill.Apply(t); err != nil {
		return nil, fmt.Errorf("failed to apply fill to %s: %w", name, err)
	}
	return t, nil
}

// groups selects the recipients for roles; no roles means every recipient
func (s *Service) groups(t *esign.Template, roles []string) []esign.RecipientGroup {
	if len(roles) == 0 {
		return t.Recipients()
	}
	return t.GroupsForRoles(roles)
}

func (s *Service) loadTemplate(name string) (*esign.Template, error) {
	if err := s.pathValidator.ValidateTemplateName(name); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	root := s.TemplateDir()
	path := esign.TemplatePath(root, name)
	stat, err := os.Stat(path)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeIO, err).WithFile(path)
	}

	cached, ok := s.templates.get(name)
	if !ok || !cached.modTime.Equal(stat.ModTime()) {
		data, err := esign.ReadTemplateData(root, name)
		if err != nil {
			return nil, err
		}
		cached = cachedTemplate{modTime: stat.ModTime(), data: data}
		s.templates.put(name, cached)
	}

	t, err := esign.Parse(root, name, cached.data, esign.WithRenderer(s.renderer))
	if err != nil {
		return nil, err
	}
	if err := s.confineDocuments(t); err != nil {
		return nil, err
	}
	return t, nil
}

// confineDocuments rejects templates whose source PDFs live outside the
// template directory or exceed the size limit.
func (s *Service) confineDocuments(t *esign.Template) error {
	for _, d := range t.Documents() {
		path := d.Path()
		if path == "" {
			continue
		}
		if err := s.pathValidator.ValidatePath(path); err != nil {
			return pdferrors.Wrap(pdferrors.ErrorTypeInvalidTemplate, err).
				WithFile(path).WithContext(t.Name() + " document " + d.DocumentID())
		}
		if err := s.checkSize(path); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) describe(t *esign.Template) *TemplateInfo {
	info := &TemplateInfo{
		Name:            t.Name(),
		DisplayName:     t.DisplayName(),
		TemplateOptions: t.TemplateOptions(),
	}

	all := t.AllRecipients()
	for _, d := range t.Documents() {
		info.Documents = append(info.Documents, DocumentInfo{
			DocumentID: d.DocumentID(),
			Name:       d.Name(),
			Path:       d.Path(),
			Pages:      s.pageCount(d),
			Static:     d.IsStatic(all),
		})
	}

	for _, g := range t.Recipients() {
		for _, r := range g.Recipients {
			ri := RecipientInfo{
				Type:        g.Type,
				RoleName:    r.RoleName(),
				RecipientID: r.RecipientID(),
				Tabs:        len(r.Tabs()),
			}
			for _, f := range r.Fields() {
				ri.Fields = append(ri.Fields, describeField(f))
			}
			info.Recipients = append(info.Recipients, ri)
		}
	}
	return info
}

// pageCount returns -1 when the document cannot be opened
func (s *Service) pageCount(d *esign.Document) int {
	blank, err := d.BlankPDF()
	if err != nil {
		log.Printf("Warning: %v", err)
		return -1
	}
	doc, err := s.library.Open(blank)
	if err != nil {
		log.Printf("Warning: cannot open %s: %v", d.Path(), err)
		return -1
	}
	defer doc.Close()

	n, err := doc.GetPageCount()
	if err != nil {
		return -1
	}
	return n
}

func describeField(f *esign.Field) FieldInfo {
	fi := FieldInfo{
		Label:      f.Label(),
		Kind:       f.Kind().String(),
		DocumentID: f.DocumentID(),
	}
	if idx, err := f.PageIndex(); err == nil {
		fi.Page = idx + 1
	}
	if v, ok := f.Value(); ok {
		fi.Value = v
	}
	for _, radio := range f.Radios() {
		fi.Options = append(fi.Options, radio.Data().String("value"))
	}
	for _, item := range f.ListItems() {
		fi.Options = append(fi.Options, item.Data().String("value"))
	}
	return fi
}

func (s *Service) checkSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeIO, err).WithFile(path)
	}
	if info.Size() > s.maxFileSize {
		return pdferrors.Newf(pdferrors.ErrorTypeIO,
			"file size %d exceeds maximum allowed size %d", info.Size(), s.maxFileSize).WithFile(path)
	}
	return nil
}
