package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/verbatim/internal/model"
	"github.com/ppiankov/verbatim/internal/pipeline"
	"github.com/ppiankov/verbatim/internal/store"
)

var (
	listLimit  int
	listStatus string
	submitText string
)

var submitCmd = &cobra.Command{
	Use:   "submit [file|url|-]",
	Short: "Create a pending submission for stage-by-stage processing",
	Long: `Submit validates and stores a text without running any stage.
Run the stages afterwards with 'verbatim stage'.

Example:
  verbatim submit notes.md
  verbatim stage s1 <id>`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		src := ""
		if len(args) == 1 {
			src = args[0]
		}
		doc, err := a.readSource(ctx, src, submitText)
		if err != nil {
			return err
		}

		sub, err := a.pipeline.Submit(ctx, doc.Text)
		if err != nil {
			return fmt.Errorf("submit: %w", err)
		}
		fmt.Println(sub.ID)
		return nil
	},
}

var stageCmd = &cobra.Command{
	Use:   "stage <s1|f1|s2|f2|finalize> <id>",
	Short: "Run one processing stage on a submission",
	Long: `Stage runs a single stage. S2 needs F1 fragments and F2 needs the S1
summary. Re-running F1 or F2 appends new fragments; S1 and S2 can only be
generated once per submission. 'finalize' marks the submission completed.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stage, err := pipeline.ParseStage(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, stage != pipeline.StageFinalize)
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.pipeline.RunStage(ctx, args[1], stage)
		if err != nil {
			return fmt.Errorf("stage %s: %w", stage, err)
		}
		return printJSON(out)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show the processing status of a submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		sub, err := a.store.GetSubmission(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("status %s: %w", args[0], err)
		}
		return printJSON(model.NewStatusView(sub))
	},
}

var resultsCmd = &cobra.Command{
	Use:   "results <id>",
	Short: "Compile the results of a submission",
	Long: `Results prints every stored summary and fragment with its verification.
Without output flags the JSON document goes to stdout.

Example:
  verbatim results <id> --md report.md --html report.html`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.pipeline.CompileResults(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("results %s: %w", args[0], err)
		}
		if res.Status != model.StatusCompleted {
			fmt.Fprintf(os.Stderr, "Warning: submission is %s; results may be partial\n", res.Status)
		}
		return a.emit(res, outJSON, outMD, outHTML)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent submissions",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := store.ListOptions{Limit: listLimit}
		if listStatus != "" {
			status, err := model.ParseStatus(listStatus)
			if err != nil {
				return err
			}
			opts.Status = status
		}

		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		subs, err := a.store.ListSubmissions(cmd.Context(), opts)
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			fmt.Fprintln(os.Stderr, "No submissions found")
			return nil
		}

		fmt.Printf("%-36s  %-10s  %-20s  %s\n", "ID", "STATUS", "CREATED", "PREVIEW")
		for _, sub := range subs {
			fmt.Printf("%-36s  %-10s  %-20s  %s\n",
				sub.ID, sub.Status, sub.CreatedAt.Format("2006-01-02 15:04:05"),
				strings.ReplaceAll(sub.Preview(60), "\n", " "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(submitCmd, stageCmd, statusCmd, resultsCmd, listCmd)

	submitCmd.Flags().StringVar(&submitText, "text", "", "text to submit instead of a file or URL")

	resultsCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path")
	resultsCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path")
	resultsCmd.Flags().StringVar(&outHTML, "html", "", "output HTML path")

	listCmd.Flags().IntVar(&listLimit, "limit", 10, "maximum number of submissions")
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (pending, processing, completed, failed)")
}
