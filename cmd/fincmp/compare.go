package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"fin_dashboard/pkg/core/agent"
	"fin_dashboard/pkg/core/compare"
	"fin_dashboard/pkg/core/config"
	"fin_dashboard/pkg/core/ingest"
	"fin_dashboard/pkg/core/narrative"
	"fin_dashboard/pkg/core/present"

	"github.com/google/subcommands"
)

type compareCmd struct {
	fileA    string
	fileB    string
	labelA   string
	labelB   string
	catalog  string
	currency string
	format   string
	epsilon  float64
	narrate  bool

	out io.Writer
}

func (*compareCmd) Name() string     { return "compare" }
func (*compareCmd) Synopsis() string { return "compare two company snapshots metric by metric" }
func (*compareCmd) Usage() string {
	return `fincmp compare -a <file|url> -b <file|url> [-catalog <yaml>] [-currency INR] [-format text|markdown|html|json]

  Reads two snapshots (JSON, lenient JSON, Hjson or an HTML metric table),
  scores them over the catalog and prints the verdict and per-metric table.
  http(s) sources are downloaded; the content type picks the reader.
`
}

func (c *compareCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.fileA, "a", "", "first company's snapshot file or URL")
	f.StringVar(&c.fileB, "b", "", "second company's snapshot file or URL")
	f.StringVar(&c.labelA, "label-a", "", "label for the first company (defaults to the file's own label)")
	f.StringVar(&c.labelB, "label-b", "", "label for the second company")
	f.StringVar(&c.catalog, "catalog", "", "metric catalog YAML (defaults to the built-in catalog)")
	f.StringVar(&c.currency, "currency", "USD", "ISO currency code or symbol for monetary metrics")
	f.StringVar(&c.format, "format", "text", "output format: text, markdown, html or json")
	f.Float64Var(&c.epsilon, "epsilon", 0, "treat values closer than this as a tie")
	f.BoolVar(&c.narrate, "narrate", false, "ask the configured LLM for commentary")
}

func (c *compareCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.fileA == "" || c.fileB == "" {
		fmt.Fprintln(os.Stderr, "both -a and -b are required")
		return subcommands.ExitUsageError
	}
	if c.epsilon < 0 {
		fmt.Fprintf(os.Stderr, "-epsilon must be non-negative, got %v\n", c.epsilon)
		return subcommands.ExitUsageError
	}
	if c.out == nil {
		c.out = os.Stdout
	}

	catalog, err := loadCatalog(c.catalog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading catalog: %v\n", err)
		return subcommands.ExitFailure
	}
	snapA, err := readSnapshot(ctx, c.fileA, c.labelA)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", c.fileA, err)
		return subcommands.ExitFailure
	}
	snapB, err := readSnapshot(ctx, c.fileB, c.labelB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", c.fileB, err)
		return subcommands.ExitFailure
	}

	result, err := compare.NewEngine(c.epsilon).Run(catalog, snapA, snapB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error comparing: %v\n", err)
		return subcommands.ExitFailure
	}
	dm, err := present.Format(result, c.currency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting: %v\n", err)
		return subcommands.ExitFailure
	}

	notes := ""
	if c.narrate {
		notes = c.narrative(ctx, result)
	}

	if err := render(c.out, c.format, result, dm, notes); err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering: %v\n", err)
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}

func (c *compareCmd) narrative(ctx context.Context, result *compare.ComparisonResult) string {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		cfg = config.Default()
	}
	s := narrative.NewSummarizer(agent.NewManager(cfg.Agents), c.currency)
	n, err := s.Summarize(ctx, result)
	if err != nil || n.Source != narrative.SourceLLM {
		if n.Error != "" {
			fmt.Fprintf(os.Stderr, "Warning: narrative unavailable: %s\n", n.Error)
		}
		return ""
	}
	return n.Text
}

func loadCatalog(path string) (*compare.Catalog, error) {
	if path == "" {
		return compare.DefaultCatalog(), nil
	}
	return compare.LoadCatalog(path)
}

// readSnapshot loads a snapshot from a URL or a file. .html/.htm files are
// read as a metric table; everything else goes through the lenient JSON
// decoder.
func readSnapshot(ctx context.Context, src, label string) (*compare.CompanySnapshot, error) {
	if isURL(src) {
		snap, err := ingest.FetchDocument(ctx, nil, label, src)
		if err != nil {
			return nil, err
		}
		if snap.Label == "" {
			snap.Label = urlLabel(src)
		}
		return snap, nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	var snap *compare.CompanySnapshot
	switch strings.ToLower(filepath.Ext(src)) {
	case ".html", ".htm":
		snap, err = ingest.ParseHTMLTable(label, string(data))
	default:
		snap, err = ingest.DecodeSnapshot(label, data)
	}
	if err != nil {
		return nil, err
	}
	if snap.Label == "" {
		snap.Label = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	}
	return snap, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// urlLabel names a downloaded snapshot after the last path segment.
func urlLabel(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return u.Host
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

type jsonOutput struct {
	Result    *compare.ComparisonResult `json:"result"`
	Display   *present.DisplayModel     `json:"display"`
	Narrative string                    `json:"narrative,omitempty"`
}

func render(w io.Writer, format string, result *compare.ComparisonResult, dm *present.DisplayModel, notes string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonOutput{Result: result, Display: dm, Narrative: notes})
	case "markdown", "md":
		_, err := io.WriteString(w, present.RenderMarkdown(dm, notes))
		return err
	case "html":
		html, err := present.RenderHTML(dm, notes)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	case "text", "":
		fmt.Fprintln(w, verdictBanner(dm))
		fmt.Fprint(w, markdownToTerminal(present.RenderMarkdown(dm, notes)))
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
