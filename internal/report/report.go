package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/verbatim/internal/model"
)

// Renderer writes compiled results as JSON, Markdown, HTML or a terminal summary
type Renderer struct {
	includeFooter bool
	now           func() time.Time
}

// NewRenderer creates a renderer. includeFooter adds a generated-at line to
// Markdown and HTML output.
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter, now: time.Now}
}

// JSON returns indented JSON for results
func (r *Renderer) JSON(results *model.Results) ([]byte, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal results: %w", err)
	}
	return append(data, '\n'), nil
}

// RenderJSON writes results as JSON to path
func (r *Renderer) RenderJSON(results *model.Results, path string) error {
	data, err := r.JSON(results)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// RenderMarkdown writes results as Markdown to path
func (r *Renderer) RenderMarkdown(results *model.Results, path string) error {
	return writeFile(path, []byte(r.Markdown(results)))
}

// RenderHTML writes results as a standalone HTML page to path
func (r *Renderer) RenderHTML(results *model.Results, path string) error {
	page, err := r.HTML(results)
	if err != nil {
		return err
	}
	return writeFile(path, page)
}

// Render writes every output whose path is non-empty
func (r *Renderer) Render(results *model.Results, jsonPath, mdPath, htmlPath string) error {
	if jsonPath != "" {
		if err := r.RenderJSON(results, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
	}
	if mdPath != "" {
		if err := r.RenderMarkdown(results, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
	}
	if htmlPath != "" {
		if err := r.RenderHTML(results, htmlPath); err != nil {
			return fmt.Errorf("render HTML: %w", err)
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Markdown renders results as a Markdown document
func (r *Renderer) Markdown(res *model.Results) string {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Verification Report\n\n")
	fmt.Fprintf(&b, "- **Submission:** `%s`\n", res.SubmissionID)
	fmt.Fprintf(&b, "- **Status:** %s\n", res.Status)
	fmt.Fprintf(&b, "- **Created:** %s\n", res.CreatedAt.UTC().Format(time.RFC3339))
	if res.ProcessingCompletedAt != nil {
		fmt.Fprintf(&b, "- **Completed:** %s\n", res.ProcessingCompletedAt.UTC().Format(time.RFC3339))
	}
	if res.ErrorMessage != nil {
		fmt.Fprintf(&b, "- **Error:** %s\n", *res.ErrorMessage)
	}
	b.WriteString("\n")

	vs := res.VerificationSummary
	b.WriteString("## Verification\n\n")
	b.WriteString("| Set | Verified | Total | Rate |\n")
	b.WriteString("|-----|----------|-------|------|\n")
	fmt.Fprintf(&b, "| F1 | %d | %d | %s |\n", vs.F1Verified, vs.F1Total, Percent(vs.F1VerificationRate))
	fmt.Fprintf(&b, "| F2 | %d | %d | %s |\n", vs.F2Verified, vs.F2Total, Percent(vs.F2VerificationRate))
	fmt.Fprintf(&b, "| Overall | %d | %d | %s |\n\n",
		vs.F1Verified+vs.F2Verified, vs.F1Total+vs.F2Total, Percent(vs.OverallVerificationRate))

	writeSummary(&b, "Primary Summary (S1)", res.Summaries.S1)
	writeSummary(&b, "Secondary Summary (S2)", res.Summaries.S2)

	b.WriteString("## Key Fragments (F1)\n\n")
	if len(res.Fragments.F1) == 0 {
		b.WriteString("_None extracted._\n\n")
	}
	for _, f := range res.Fragments.F1 {
		fmt.Fprintf(&b, "%d. %s %s\n", f.SequenceNumber, mark(f), escapeInline(f.Content))
		fmt.Fprintf(&b, "   - match: %s, score: %.2f%s\n", f.MatchType, f.SimilarityScore, span(f))
	}
	b.WriteString("\n")

	b.WriteString("## Justifications (F2)\n\n")
	if len(res.Fragments.F2) == 0 {
		b.WriteString("_None extracted._\n\n")
	}
	for _, f := range res.Fragments.F2 {
		sentence := ""
		if f.RelatedSentence != nil {
			sentence = *f.RelatedSentence
		}
		fmt.Fprintf(&b, "### %d. %s\n\n", f.SequenceNumber, escapeInline(sentence))
		fmt.Fprintf(&b, "> %s\n\n", escapeInline(f.Content))
		fmt.Fprintf(&b, "%s match: %s, score: %.2f%s\n\n", mark(f), f.MatchType, f.SimilarityScore, span(f))
	}

	if r.includeFooter {
		fmt.Fprintf(&b, "---\n\n_Generated by verbatim at %s_\n", r.now().UTC().Format(time.RFC3339))
	}
	return b.String()
}

func writeSummary(b *bytes.Buffer, title string, s model.SummaryView) {
	fmt.Fprintf(b, "## %s\n\n", title)
	if s.Content == nil {
		b.WriteString("_Not generated._\n\n")
		return
	}
	b.WriteString(strings.TrimSpace(*s.Content))
	b.WriteString("\n\n")
}

func mark(f model.FragmentView) string {
	if f.Verified {
		return "✓"
	}
	return "✗"
}

func span(f model.FragmentView) string {
	if f.StartPosition == nil || f.EndPosition == nil {
		return ""
	}
	return fmt.Sprintf(", bytes %d-%d", *f.StartPosition, *f.EndPosition)
}

// escapeInline keeps model output from turning into Markdown structure
func escapeInline(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := strings.NewReplacer("*", `\*`, "_", `\_`, "`", "\\`", "<", "&lt;", ">", "&gt;", "[", `\[`, "]", `\]`)
	return r.Replace(s)
}

// Percent formats a 0..1 rate
func Percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}
