package report

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ppiankov/verbatim/internal/model"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

const pageStyle = `body{font-family:system-ui,sans-serif;max-width:52rem;margin:2rem auto;padding:0 1rem;line-height:1.5}
table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:.25rem .6rem}
blockquote{border-left:4px solid #ddd;margin:0;padding-left:1rem;color:#444}`

// HTML renders the Markdown report into a standalone page
func (r *Renderer) HTML(res *model.Results) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(r.Markdown(res)), &body); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Verification Report %s</title>\n<style>%s</style></head>\n<body>\n",
		html.EscapeString(res.SubmissionID), pageStyle)
	page.Write(body.Bytes())
	page.WriteString("</body></html>\n")
	return page.Bytes(), nil
}
