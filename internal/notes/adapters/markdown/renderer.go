// Package markdown переводит markdown заметок в HTML и простой текст.
package markdown

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"staticnotes/internal/notes/ports/render"
)

// ErrRender - префикс ошибки рендеринга.
const ErrRender = "failed to render markdown"

// Renderer использует goldmark с расширениями GFM.
// Сырой HTML из заметок не выводится.
type Renderer struct {
	html  goldmark.Markdown
	plain goldmark.Markdown
}

var _ render.Markdown = (*Renderer)(nil)

// NewRenderer создает рендерер.
func NewRenderer() *Renderer {
	return &Renderer{
		html: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		plain: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Render переводит markdown в HTML.
func (r *Renderer) Render(md string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.html.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("%s: %w", ErrRender, err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // goldmark экранирует HTML без WithUnsafe
}

// PlainText извлекает текст без разметки: для выдержек и поискового индекса.
func (r *Renderer) PlainText(md string) string {
	source := []byte(md)
	doc := r.plain.Parser().Parse(text.NewReader(source))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				sb.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(node.Value)
		case *ast.AutoLink:
			sb.Write(node.URL(source))
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				sb.Write(line.Value(source))
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(sb.String()), " ")
}
