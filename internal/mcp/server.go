package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-esign-templates/internal/config"
	"github.com/a3tai/mcp-esign-templates/internal/esign"
	"github.com/a3tai/mcp-esign-templates/internal/service"
)

const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *service.Service
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc *service.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if svc == nil {
		return nil, fmt.Errorf("template service cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		service:   svc,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"template_import",
		mcp.WithDescription("Convert a vendor template export (JSON) into a stored template with one PDF per document"),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("Path to the exported JSON, relative to the template directory or absolute inside it"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name to store the template under"),
		),
	), s.handleTemplateImport)

	s.mcpServer.AddTool(mcp.NewTool(
		"template_list",
		mcp.WithDescription("List the stored templates"),
	), s.handleTemplateList)

	s.mcpServer.AddTool(mcp.NewTool(
		"template_info",
		mcp.WithDescription("Describe a stored template: documents, recipients and the fields each role can fill"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Stored template name"),
		),
	), s.handleTemplateInfo)

	s.mcpServer.AddTool(mcp.NewTool(
		"template_render",
		mcp.WithDescription("Fill a template and write one PDF per document with the field values drawn on the pages"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Stored template name"),
		),
		mcp.WithString("roles",
			mcp.Description("Comma separated role names to include (all recipients when empty)"),
		),
		mcp.WithString("fill_json",
			mcp.Description(`Values as JSON: {"values": {"Role": {"label": value}}, "disabled": {"Role": ["label"]}}`),
		),
		mcp.WithString("output_dir",
			mcp.Description("Output directory inside the template directory (defaults to 'out')"),
		),
	), s.handleTemplateRender)

	s.mcpServer.AddTool(mcp.NewTool(
		"template_composite",
		mcp.WithDescription("Build the composite template entry used to resubmit a filled template to the vendor"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Stored template name"),
		),
		mcp.WithString("roles",
			mcp.Description("Comma separated role names to include (all recipients when empty)"),
		),
		mcp.WithString("fill_json",
			mcp.Description("Values as JSON, same shape as template_render"),
		),
		mcp.WithNumber("sequence",
			mcp.Description("Sequence number of the entry (defaults to 1)"),
		),
		mcp.WithBoolean("isolated",
			mcp.Description("Compose in a separate worker process"),
		),
		mcp.WithBoolean("camelize",
			mcp.Description("Return vendor style camelCase keys"),
		),
	), s.handleTemplateComposite)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_inspect",
		mcp.WithDescription("Read back the text of a PDF inside the template directory, for checking rendered output"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file"),
		),
	), s.handlePDFInspect)

	s.mcpServer.AddTool(mcp.NewTool(
		"esign_server_info",
		mcp.WithDescription("Get server information, stored templates, cache statistics and usage guidance"),
	), s.handleServerInfo)
}

// Handler functions
func (s *Server) handleTemplateImport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := request.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.Import(service.ImportRequest{Source: source, Name: name})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatImportResult(result)), nil
}

func (s *Server) handleTemplateList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.service.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(result.Templates) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No templates found in directory: %s", result.Directory)), nil
	}

	text := fmt.Sprintf("Found %d template(s) in directory: %s\n", len(result.Templates), result.Directory)
	for i, name := range result.Templates {
		text += fmt.Sprintf("%d. %s\n", i+1, name)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleTemplateInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.Info(service.InfoRequest{Name: name})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatTemplateInfo(result)), nil
}

func (s *Server) handleTemplateRender(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	fill, err := fillArgument(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := service.RenderRequest{
		Name:      name,
		Roles:     rolesArgument(args),
		Fill:      fill,
		OutputDir: stringArgument(args, "output_dir"),
	}
	result, err := s.service.Render(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatRenderResult(result)), nil
}

func (s *Server) handleTemplateComposite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	fill, err := fillArgument(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := service.CompositeRequest{
		Name:     name,
		Roles:    rolesArgument(args),
		Fill:     fill,
		Sequence: request.GetInt("sequence", 1),
		Isolated: boolArgument(args, "isolated"),
		Camelize: boolArgument(args, "camelize"),
	}
	result, err := s.service.Composite(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := s.formatCompositeResult(result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handlePDFInspect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.Inspect(service.InspectRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("PDF: %s\n", result.Path)
	text += fmt.Sprintf("Pages: %d\n", result.PageCount)
	for _, page := range result.Pages {
		text += fmt.Sprintf("\n--- Page %d ---\n%s\n", page.Number, page.Text)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.service.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatServerInfo(list, s.service.CacheStats())), nil
}

// Argument helpers
func stringArgument(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func boolArgument(args map[string]any, key string) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

func rolesArgument(args map[string]any) []string {
	raw := stringArgument(args, "roles")
	if raw == "" {
		return nil
	}
	var roles []string
	for _, role := range strings.Split(raw, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}

func fillArgument(args map[string]any) (*esign.Fill, error) {
	raw := stringArgument(args, "fill_json")
	if raw == "" {
		return nil, nil
	}
	fill := &esign.Fill{}
	if err := json.Unmarshal([]byte(raw), fill); err != nil {
		return nil, fmt.Errorf("invalid fill_json: %w", err)
	}
	return fill, nil
}

// Formatting methods
func (s *Server) formatImportResult(result *service.ImportResult) string {
	text := fmt.Sprintf("Imported template: %s\n", result.Name)
	text += fmt.Sprintf("Stored at: %s\n", result.Path)
	text += fmt.Sprintf("Documents: %d\n", len(result.Documents))
	for i, doc := range result.Documents {
		text += fmt.Sprintf("%d. %s (document %s, %d page(s))", i+1, doc.Name, doc.DocumentID, doc.Pages)
		if doc.Static {
			text += " - no fillable fields"
		}
		text += "\n"
	}
	text += fmt.Sprintf("Recipients: %d\n", len(result.Recipients))
	for _, r := range result.Recipients {
		text += fmt.Sprintf("  • %s (%s): %d field(s), %d vendor tab(s)\n", r.RoleName, r.Type, len(r.Fields), r.Tabs)
	}
	return text
}

func (s *Server) formatTemplateInfo(result *service.TemplateInfo) string {
	text := fmt.Sprintf("Template: %s\n", result.Name)
	if result.DisplayName != "" && result.DisplayName != result.Name {
		text += fmt.Sprintf("Display name: %s\n", result.DisplayName)
	}
	if result.TemplateOptions != nil {
		if subject := result.TemplateOptions.String("email_subject"); subject != "" {
			text += fmt.Sprintf("Email subject: %s\n", subject)
		}
	}

	text += "\nDocuments:\n"
	for i, doc := range result.Documents {
		text += fmt.Sprintf("%d. %s (document %s)\n", i+1, doc.Name, doc.DocumentID)
		text += fmt.Sprintf("   Path: %s\n", doc.Path)
		text += fmt.Sprintf("   Pages: %d\n", doc.Pages)
		if doc.Static {
			text += "   Static: copied unchanged when rendering\n"
		}
	}

	text += "\nRecipients:\n"
	for _, r := range result.Recipients {
		text += fmt.Sprintf("\n• %s (%s, recipient %s)\n", r.RoleName, r.Type, r.RecipientID)
		if len(r.Fields) == 0 {
			text += "  No fillable fields\n"
		}
		for _, f := range r.Fields {
			text += fmt.Sprintf("  - %s [%s] document %s page %d", f.Label, f.Kind, f.DocumentID, f.Page)
			if f.Value != "" {
				text += fmt.Sprintf(", current: %s", f.Value)
			}
			if len(f.Options) > 0 {
				text += fmt.Sprintf(", options: %s", strings.Join(f.Options, ", "))
			}
			text += "\n"
		}
		if r.Tabs > 0 {
			text += fmt.Sprintf("  %d vendor tab(s) left for signing\n", r.Tabs)
		}
	}
	return text
}

func (s *Server) formatRenderResult(result *service.RenderResult) string {
	text := fmt.Sprintf("Rendered template: %s\n", result.Name)
	text += fmt.Sprintf("Output directory: %s\n", result.OutputDir)
	text += "\nFiles:\n"
	for i, doc := range result.Documents {
		text += fmt.Sprintf("%d. %s (%d bytes)", i+1, doc.Path, doc.Size)
		if doc.Static {
			text += " - copied"
		}
		text += "\n"
		for _, w := range doc.Warnings {
			text += fmt.Sprintf("   ⚠️  %s\n", w)
		}
	}
	return text
}

func (s *Server) formatCompositeResult(result *service.CompositeResult) (string, error) {
	body, err := json.MarshalIndent(result.Entry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode composite entry: %w", err)
	}
	mode := "in process"
	if result.Isolated {
		mode = "isolated worker"
	}
	text := fmt.Sprintf("Composite entry for %s (%s)\n\n", result.Name, mode)
	return text + string(body), nil
}

func (s *Server) formatServerInfo(list *service.ListResult, stats service.CacheStats) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("📁 Template Directory: %s\n", list.Directory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", s.service.GetMaxFileSize()/(1024*1024))
	text += fmt.Sprintf("🗃️  Template Cache: %d/%d entries, %.1f%% hit rate\n\n", stats.Size, stats.Capacity, stats.HitRate)

	if len(list.Templates) > 0 {
		text += fmt.Sprintf("📂 Stored Templates (%d):\n", len(list.Templates))
		for i, name := range list.Templates {
			if i >= 10 {
				text += fmt.Sprintf("   ... and %d more\n", len(list.Templates)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s\n", i+1, name)
		}
		text += "\n"
	} else {
		text += "📂 Stored Templates: none yet, import an export with template_import\n\n"
	}

	text += "🛠️  Workflow:\n"
	text += "  1. template_import converts an export into <name>.yml plus one PDF per document\n"
	text += "  2. template_info shows each role's fields, kinds and options\n"
	text += "  3. template_render draws the values and writes <name>_<n>_filled.pdf files\n"
	text += "  4. template_composite returns the entry used to resubmit the filled template\n"
	text += "  5. pdf_inspect reads rendered text back for checking\n"
	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting e-sign template MCP server in stdio mode")
		log.Printf("Template directory: %s", s.config.TemplateDirectory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over HTTP with server-sent events until ctx is done
func (s *Server) runServerMode(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("server not started: %w", err)
	}

	sse := server.NewSSEServer(s.mcpServer)
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting e-sign template MCP server on %s", s.config.Address())
		errCh <- sse.Start(s.config.Address())
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return nil
	}
}
