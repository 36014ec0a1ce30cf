package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"staticnotes/internal/notes/domain/entities"
)

const delimiter = "---\n"

// ErrNoFrontmatter возвращается, если файл не начинается с блока метаданных.
var ErrNoFrontmatter = errors.New("frontmatter block not found")

type frontmatter struct {
	ID        string     `yaml:"id"`
	Title     string     `yaml:"title"`
	Tags      []string   `yaml:"tags"`
	CreatedAt *time.Time `yaml:"created_at,omitempty"`
	UpdatedAt *time.Time `yaml:"updated_at,omitempty"`
}

// Marshal превращает заметку в markdown с YAML метаданными.
func Marshal(n entities.Note) ([]byte, error) {
	meta := frontmatter{
		ID:        n.ID,
		Title:     n.Title,
		Tags:      entities.NormalizeTags(n.Tags),
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(meta); err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	buf.WriteString(delimiter)
	buf.WriteString(n.BodyMarkdown)
	if n.BodyMarkdown != "" && !strings.HasSuffix(n.BodyMarkdown, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Unmarshal читает файл, записанный Marshal.
func Unmarshal(data []byte) (entities.Note, error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, []byte(delimiter)) {
		return entities.Note{}, ErrNoFrontmatter
	}

	rest := data[len(delimiter):]
	end := bytes.Index(rest, []byte("\n"+delimiter))
	if end < 0 {
		return entities.Note{}, ErrNoFrontmatter
	}

	var meta frontmatter
	if err := yaml.Unmarshal(rest[:end+1], &meta); err != nil {
		return entities.Note{}, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	return entities.Note{
		ID:           meta.ID,
		Title:        meta.Title,
		BodyMarkdown: string(rest[end+1+len(delimiter):]),
		Tags:         entities.NormalizeTags(meta.Tags),
		CreatedAt:    meta.CreatedAt,
		UpdatedAt:    meta.UpdatedAt,
	}, nil
}
