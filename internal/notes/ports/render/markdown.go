// Package render определяет порт рендеринга markdown.
package render

import "html/template"

// Markdown превращает markdown в HTML и в простой текст.
type Markdown interface {
	Render(source string) (template.HTML, error)
	PlainText(source string) string
}
