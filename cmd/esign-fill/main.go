// Command esign-fill asks for the values of a stored template's fields in the
// terminal and renders the filled PDFs.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/a3tai/mcp-esign-templates/internal/esign"
	"github.com/a3tai/mcp-esign-templates/internal/prompt"
	"github.com/a3tai/mcp-esign-templates/internal/service"
)

type options struct {
	dir      string
	roles    string
	output   string
	fillFile string
	saveFill string
}

func main() {
	opts := options{}
	flags := pflag.NewFlagSet("esign-fill", pflag.ExitOnError)
	flags.StringVar(&opts.dir, "dir", ".", "Directory holding stored templates")
	flags.StringVar(&opts.roles, "roles", "", "Comma separated roles to fill (all when empty)")
	flags.StringVar(&opts.output, "out", service.DefaultOutputDir, "Output directory inside the template directory")
	flags.StringVar(&opts.fillFile, "fill", "", "Read values from this YAML file instead of asking")
	flags.StringVar(&opts.saveFill, "save-fill", "", "Write the collected values to this YAML file")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: esign-fill [options] [template]\n\nOptions:\n")
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, flags.Arg(0), prompt.NewSurveyDriver()); err != nil {
		if errors.Is(err, prompt.ErrAborted) {
			fmt.Fprintln(os.Stderr, "Aborted")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, name string, driver prompt.Driver) error {
	svc, err := service.NewService(service.Options{TemplateDir: opts.dir})
	if err != nil {
		return err
	}

	if name == "" {
		if name, err = chooseTemplate(ctx, svc, driver); err != nil {
			return err
		}
	}

	roles := parseRoles(opts.roles)
	var fill *esign.Fill
	if opts.fillFile != "" {
		fill, err = loadFill(opts.fillFile)
	} else {
		var info *service.TemplateInfo
		if info, err = svc.Info(service.InfoRequest{Name: name}); err != nil {
			return err
		}
		fill, err = prompt.BuildFill(ctx, driver, info, roles)
	}
	if err != nil {
		return err
	}

	if opts.saveFill != "" {
		if err := saveFill(opts.saveFill, fill); err != nil {
			return err
		}
	}

	result, err := svc.Render(service.RenderRequest{
		Name:      name,
		Roles:     roles,
		Fill:      fill,
		OutputDir: opts.output,
	})
	if err != nil {
		return err
	}

	for _, doc := range result.Documents {
		msg := fmt.Sprintf("wrote %s", doc.Path)
		for _, w := range doc.Warnings {
			msg += "\n  warning: " + w
		}
		if err := driver.Info(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func chooseTemplate(ctx context.Context, svc *service.Service, driver prompt.Driver) (string, error) {
	list, err := svc.List()
	if err != nil {
		return "", err
	}
	if len(list.Templates) == 0 {
		return "", fmt.Errorf("no templates found in %s", list.Directory)
	}
	idx, err := driver.Select(ctx, prompt.SelectConfig{
		Message: "Template",
		Options: list.Templates,
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(list.Templates) {
		return "", fmt.Errorf("no template selected")
	}
	return list.Templates[idx], nil
}

func parseRoles(raw string) []string {
	var roles []string
	for _, role := range strings.Split(raw, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}

func loadFill(path string) (*esign.Fill, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fill: %w", err)
	}
	fill := &esign.Fill{}
	if err := yaml.Unmarshal(raw, fill); err != nil {
		return nil, fmt.Errorf("failed to parse fill %s: %w", path, err)
	}
	return fill, nil
}

func saveFill(path string, fill *esign.Fill) error {
	out, err := yaml.Marshal(fill)
	if err != nil {
		return fmt.Errorf("failed to encode fill: %w", err)
	}
	return esign.WriteAtomic(path, out)
}
