// Package search реализует поиск, фильтрацию и сортировку заметок.
package search

import (
	"cmp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"staticnotes/internal/notes/domain/entities"
)

// SortMode - порядок выдачи заметок.
type SortMode string

// Поддерживаемые режимы сортировки.
const (
	SortUpdated SortMode = "updated"
	SortCreated SortMode = "created"
	SortTitle   SortMode = "title"
)

// ParseSortMode разбирает режим сортировки. Неизвестное значение дает SortUpdated.
func ParseSortMode(s string) SortMode {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case SortCreated:
		return SortCreated
	case SortTitle:
		return SortTitle
	default:
		return SortUpdated
	}
}

// Filter - набор условий отбора.
type Filter struct {
	Query string
	Tags  []string
	Sort  SortMode
}

// IsZero сообщает, что фильтр ничего не отсекает.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Query) == "" && len(f.Tags) == 0
}

// Apply отбирает заметки по запросу и тегам и сортирует результат.
func Apply(notes []entities.Note, f Filter) []entities.Note {
	out := make([]entities.Note, 0, len(notes))
	tokens := Tokenize(f.Query)
	for _, note := range notes {
		if matchTokens(note, tokens) && hasAllTags(note, f.Tags) {
			out = append(out, note)
		}
	}
	Sort(out, f.Sort)
	return out
}

// Tokenize разбивает запрос на слова в нижнем регистре.
func Tokenize(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Match проверяет, что каждое слово запроса встречается в заголовке, тексте или тегах.
// Пустой запрос подходит любой заметке.
func Match(note entities.Note, query string) bool {
	return matchTokens(note, Tokenize(query))
}

func matchTokens(note entities.Note, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	haystack := strings.ToLower(note.Title + "\n" + note.BodyMarkdown + "\n" + strings.Join(note.Tags, "\n"))
	for _, token := range tokens {
		if !strings.Contains(haystack, token) {
			return false
		}
	}
	return true
}

// FilterByTags оставляет заметки, у которых есть все требуемые теги.
func FilterByTags(notes []entities.Note, tags []string) []entities.Note {
	out := make([]entities.Note, 0, len(notes))
	for _, note := range notes {
		if hasAllTags(note, tags) {
			out = append(out, note)
		}
	}
	return out
}

func hasAllTags(note entities.Note, tags []string) bool {
	for _, tag := range tags {
		if !note.HasTag(tag) {
			return false
		}
	}
	return true
}

// Sort упорядочивает заметки на месте. При равенстве порядок задает ID.
func Sort(notes []entities.Note, mode SortMode) {
	slices.SortStableFunc(notes, func(a, b entities.Note) int {
		var c int
		switch mode {
		case SortTitle:
			c = cmp.Compare(strings.ToLower(a.DisplayTitle()), strings.ToLower(b.DisplayTitle()))
		case SortCreated:
			c = compareTimeDesc(a.CreatedAt, b.CreatedAt)
		default:
			c = b.LastModified().Compare(a.LastModified())
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// compareTimeDesc ставит более поздние метки первыми, отсутствующие в конец.
func compareTimeDesc(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return b.Compare(*a)
	}
}

// TagCount - тег и число заметок с ним.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagCounts считает теги без учета регистра. Самые частые идут первыми.
func TagCounts(notes []entities.Note) []TagCount {
	index := make(map[string]int)
	var out []TagCount
	for _, note := range notes {
		for _, tag := range note.Tags {
			key := strings.ToLower(tag)
			if i, ok := index[key]; ok {
				out[i].Count++
				continue
			}
			index[key] = len(out)
			out = append(out, TagCount{Tag: tag, Count: 1})
		}
	}
	slices.SortFunc(out, func(a, b TagCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(a.Tag), strings.ToLower(b.Tag))
	})
	return out
}

// Excerpt сжимает пробелы и обрезает текст по границе слова до limit символов.
func Excerpt(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:limit])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:") + "…"
}
