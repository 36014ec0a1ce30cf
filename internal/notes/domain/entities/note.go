// Package entities описывает доменные сущности заметок.
package entities

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Ошибки валидации.
var (
	ErrEmptyNote  = errors.New("note must have a title or a body")
	ErrEmptyPatch = errors.New("patch does not change anything")
	ErrEmptyID    = errors.New("note id is empty")
	ErrNotFound   = errors.New("note not found")
)

// Note - заметка в том виде, в котором ее хранит удаленный сервис.
// Идентификатор и временные метки назначает сервис.
type Note struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	BodyMarkdown string     `json:"body_markdown"`
	Tags         []string   `json:"tags"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// NoteDraft - данные для создания заметки.
type NoteDraft struct {
	Title        string   `json:"title"`
	BodyMarkdown string   `json:"body_markdown"`
	Tags         []string `json:"tags"`
}

// NotePatch - частичное обновление. Передаются только заданные поля.
type NotePatch struct {
	Title        *string   `json:"title,omitempty"`
	BodyMarkdown *string   `json:"body_markdown,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
}

// NewDraft собирает черновик с нормализованными тегами.
func NewDraft(title, body string, tags []string) NoteDraft {
	return NoteDraft{
		Title:        strings.TrimSpace(title),
		BodyMarkdown: body,
		Tags:         NormalizeTags(tags),
	}
}

// Validate проверяет, что черновик не пустой.
func (d NoteDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" && strings.TrimSpace(d.BodyMarkdown) == "" {
		return ErrEmptyNote
	}
	return nil
}

// IsEmpty сообщает, что патч ничего не меняет.
func (p NotePatch) IsEmpty() bool {
	return p.Title == nil && p.BodyMarkdown == nil && p.Tags == nil
}

// Normalize приводит теги патча к множеству.
func (p NotePatch) Normalize() NotePatch {
	if p.Tags != nil {
		tags := NormalizeTags(*p.Tags)
		p.Tags = &tags
	}
	return p
}

// Apply накладывает патч на копию заметки.
func (n Note) Apply(p NotePatch) Note {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.BodyMarkdown != nil {
		n.BodyMarkdown = *p.BodyMarkdown
	}
	if p.Tags != nil {
		n.Tags = NormalizeTags(*p.Tags)
	}
	return n
}

// HasTag проверяет наличие тега без учета регистра.
func (n Note) HasTag(tag string) bool {
	tag = normalizeTag(tag)
	for _, t := range n.Tags {
		if normalizeTag(t) == tag {
			return true
		}
	}
	return false
}

// DisplayTitle возвращает заголовок или первую непустую строку тела.
func (n Note) DisplayTitle() string {
	if t := strings.TrimSpace(n.Title); t != "" {
		return t
	}
	for _, line := range strings.Split(n.BodyMarkdown, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line != "" {
			return line
		}
	}
	return "Untitled"
}

// LastModified возвращает время последнего изменения: updated_at, иначе created_at.
func (n Note) LastModified() time.Time {
	if n.UpdatedAt != nil {
		return *n.UpdatedAt
	}
	if n.CreatedAt != nil {
		return *n.CreatedAt
	}
	return time.Time{}
}

// NormalizeTags превращает список в отсортированное множество без пустых значений.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := normalizeTag(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
