package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/verbatim/internal/ingest"
	"github.com/ppiankov/verbatim/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir|list-file>",
	Short: "Process many texts in parallel",
	Long: `Batch processes many texts concurrently:
- A directory: every supported file in it (.txt, .md, .pdf, .docx)
- A list file: one path or URL per line (# comments allowed)
Each text becomes its own submission; a JSON and Markdown report is
written per input.

Example:
  verbatim batch ./articles
  verbatim batch sources.txt --concurrency 4 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", min(runtime.NumCPU(), 4), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./verbatim-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")

	_ = viper.BindPFlag("concurrency.workers", batchCmd.Flags().Lookup("concurrency"))
}

func runBatch(cmd *cobra.Command, args []string) error {
	target := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	workers := a.cfg.Concurrency.Workers

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Verbatim Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input:        %s\n", target)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Provider:     %s\n", a.provider.Name())
	fmt.Fprintf(os.Stderr, "\n")

	sources, err := batchSources(target)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no supported inputs found in %s", target)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	inputs := make([]worker.Input, 0, len(sources))
	loadFailures := 0
	for _, src := range sources {
		doc, err := ingest.Load(ctx, a.fetcher, src)
		if err != nil {
			loadFailures++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", src, err)
			continue
		}
		inputs = append(inputs, worker.Input{Name: src, Text: doc.Text})
	}

	fmt.Fprintf(os.Stderr, "⚙️  Processing %d texts with %d workers...\n\n", len(inputs), workers)

	processor := worker.NewBatchProcessor(a.pipeline, workers)
	results := processor.ProcessTexts(ctx, inputs)

	successCount := 0
	failureCount := loadFailures
	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Name, result.Error)
			continue
		}

		slug := sanitizeFilename(result.Name) + "-" + shortID(result.SubmissionID)
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")
		if err := a.renderer.Render(result.Results, jsonPath, mdPath, ""); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Name, err)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (verified: %.0f%%)\n",
			result.Name, result.Results.VerificationSummary.OverallVerificationRate*100)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d inputs\n", len(sources))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if successCount == 0 {
		return fmt.Errorf("all %d inputs failed", len(sources))
	}
	return nil
}

// batchSources expands a directory into its supported files, or reads a list file
func batchSources(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", target, err)
	}
	if !info.IsDir() {
		return worker.ReadList(target)
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", target, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !ingest.IsSupported(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(target, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// sanitizeFilename turns a path or URL into a safe report file stem
func sanitizeFilename(s string) string {
	if ingest.IsURL(s) {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "https://"), "http://")
	} else {
		s = strings.TrimSuffix(filepath.Base(s), filepath.Ext(s))
	}

	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(s)

	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" || s == "." || s == ".." {
		s = "input"
	}
	return s
}
