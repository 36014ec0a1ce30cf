package site

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

//go:embed templates/*.html
var embedded embed.FS

// Имена шаблонов страниц. Каждая страница собирается из base.html и своего файла.
const (
	tplBase     = "base.html"
	tplIndex    = "index.html"
	tplNote     = "note.html"
	tplTag      = "tag.html"
	tplNotFound = "404.html"
)

var pageTemplates = []string{tplIndex, tplNote, tplTag, tplNotFound}

// Константы для сообщений об ошибках шаблонов.
const (
	ErrReadTemplate  = "failed to read template"
	ErrParseTemplate = "failed to parse template"
)

type templateSet map[string]*template.Template

// loadTemplates читает шаблоны. Файл из overrideDir заменяет встроенный с тем же именем.
func loadTemplates(overrideDir string, u urls) (templateSet, error) {
	funcs := template.FuncMap{
		"link": u.link,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		},
	}

	baseSrc, err := readTemplate(overrideDir, tplBase)
	if err != nil {
		return nil, err
	}
	base, err := template.New(tplBase).Funcs(funcs).Parse(baseSrc)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", ErrParseTemplate, tplBase, err)
	}

	set := make(templateSet, len(pageTemplates))
	for _, name := range pageTemplates {
		src, err := readTemplate(overrideDir, name)
		if err != nil {
			return nil, err
		}
		page, err := template.Must(base.Clone()).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", ErrParseTemplate, name, err)
		}
		set[name] = page
	}
	return set, nil
}

func readTemplate(overrideDir, name string) (string, error) {
	if overrideDir != "" {
		data, err := os.ReadFile(filepath.Join(overrideDir, name))
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s %s: %w", ErrReadTemplate, name, err)
		}
	}

	data, err := embedded.ReadFile("templates/" + name)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", ErrReadTemplate, name, err)
	}
	return string(data), nil
}
