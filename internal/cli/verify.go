package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/verbatim/internal/ingest"
	"github.com/ppiankov/verbatim/internal/verify"
)

var (
	legacyMode bool
	textFile   string
)

var reverifyCmd = &cobra.Command{
	Use:   "reverify <id>",
	Short: "Re-run verification over every stored fragment of a submission",
	Long: `Reverify checks all F1 and F2 fragments against the original text again
and writes the outcomes back. --legacy uses the substring verifier with fixed
scores instead of the tiered fuzzy matcher.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		rep, err := a.pipeline.Reverify(cmd.Context(), args[0], modeFromFlag())
		if err != nil {
			return fmt.Errorf("reverify %s: %w", args[0], err)
		}
		fmt.Fprintf(os.Stderr, "Verified %d of %d fragments (%.1f%%)\n",
			rep.VerifiedCount, rep.TotalFragments, rep.VerificationRate*100)
		return printJSON(rep)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <fragment> --text-file <path>",
	Short: "Check one fragment against a text without storing anything",
	Long: `Verify runs the matcher on a single fragment and prints the match type,
score, byte span and, for fuzzy window matches, the score breakdown.

Example:
  verbatim verify "the harvest began early" --text-file notes.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if textFile == "" {
			return fmt.Errorf("--text-file is required")
		}
		doc, err := ingest.FromFile(textFile)
		if err != nil {
			return err
		}

		result := verify.ForMode(modeFromFlag()).Verify(args[0], doc.Text)
		if result.Start != nil && result.End != nil && verbose {
			fmt.Fprintf(os.Stderr, "Matched span: %q\n", doc.Text[*result.Start:*result.End])
		}
		return printJSON(result)
	},
}

func modeFromFlag() verify.Mode {
	if legacyMode {
		return verify.ModeLegacy
	}
	return verify.ModeScored
}

func init() {
	rootCmd.AddCommand(reverifyCmd, verifyCmd)

	reverifyCmd.Flags().BoolVar(&legacyMode, "legacy", false, "use the legacy substring verifier")
	verifyCmd.Flags().BoolVar(&legacyMode, "legacy", false, "use the legacy substring verifier")
	verifyCmd.Flags().StringVar(&textFile, "text-file", "", "file holding the original text")
}
