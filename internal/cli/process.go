package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/verbatim/internal/model"
	"github.com/ppiankov/verbatim/internal/pipeline"
)

var (
	outJSON     string
	outMD       string
	outHTML     string
	inlineText  string
	procTimeout time.Duration
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process [file|url|-]",
	Short: "Run all four stages on a text and verify the results",
	Long: `Process submits a text and runs S1, F1, S2 and F2 in order, verifying every
fragment against the original. Input may be a .txt/.md/.pdf/.docx file, an
http(s) URL, '-' for stdin, or --text.

Example:
  verbatim process article.txt --md report.md
  verbatim process https://example.com/post --json results.json
  verbatim process --text "..."`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(&inlineText, "text", "", "text to process instead of a file or URL")
	processCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path")
	processCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path")
	processCmd.Flags().StringVar(&outHTML, "html", "", "output HTML path")
	processCmd.Flags().DurationVar(&procTimeout, "timeout", 10*time.Minute, "overall processing timeout")
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), procTimeout)
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	src := ""
	if len(args) == 1 {
		src = args[0]
	}
	doc, err := a.readSource(ctx, src, inlineText)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Processing: %s (%d characters)\n", doc.Source, len([]rune(doc.Text)))
		fmt.Fprintf(os.Stderr, "Provider:   %s\n\n", a.provider.Name())
	}

	sub, err := a.pipeline.Submit(ctx, doc.Text)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Submission %s created\n", sub.ID)

	res, err := a.pipeline.Process(ctx, sub.ID)
	if err != nil {
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			return fmt.Errorf("processing failed at stage %s: %w", stageErr.Stage, stageErr.Err)
		}
		return fmt.Errorf("processing failed: %w", err)
	}

	return a.emit(res, outJSON, outMD, outHTML)
}

// emit writes the requested report files, then prints the terminal summary.
// With no output paths the results JSON goes to stdout.
func (a *app) emit(res *model.Results, jsonPath, mdPath, htmlPath string) error {
	if jsonPath == "" && mdPath == "" && htmlPath == "" {
		a.renderer.RenderSummary(os.Stderr, res)
		return printJSON(res)
	}

	if err := a.renderer.Render(res, jsonPath, mdPath, htmlPath); err != nil {
		return err
	}
	for _, p := range []string{jsonPath, mdPath, htmlPath} {
		if p != "" {
			fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", p)
		}
	}
	a.renderer.RenderSummary(os.Stderr, res)
	return nil
}
