package site

import (
	"crypto/sha1" //nolint:gosec // короткий суффикс имени, не криптография
	"encoding/hex"
	"net/url"
	"path"
	"strings"
	"unicode"
)

// slug превращает произвольную строку в безопасное имя каталога.
// Строка из допустимых символов остается как есть, иначе к очищенному
// имени добавляется короткий хеш, чтобы разные значения не совпали.
func slug(s string) string {
	if isSafeSegment(s) {
		return s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	sum := sha1.Sum([]byte(s)) //nolint:gosec
	clean := strings.Trim(b.String(), "-")
	if clean == "" {
		return hex.EncodeToString(sum[:6])
	}
	return clean + "-" + hex.EncodeToString(sum[:3])
}

func isSafeSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// tagSlug нормализует тег: теги сравниваются без учета регистра.
func tagSlug(tag string) string {
	return slug(strings.ToLower(strings.TrimSpace(tag)))
}

func notePath(id string) string {
	return path.Join("notes", slug(id), "index.html")
}

func tagPath(tag string) string {
	return path.Join("tags", tagSlug(tag), "index.html")
}

// urls строит ссылки относительно базового пути сайта.
type urls struct {
	basePath string
	siteURL  string
}

func newURLs(basePath, siteURL string) urls {
	return urls{
		basePath: basePath,
		siteURL:  strings.TrimRight(siteURL, "/"),
	}
}

func (u urls) link(rel string) string {
	return u.basePath + strings.TrimPrefix(rel, "/")
}

func (u urls) note(id string) string {
	return u.link("notes/" + url.PathEscape(slug(id)) + "/")
}

func (u urls) tag(tag string) string {
	return u.link("tags/" + url.PathEscape(tagSlug(tag)) + "/")
}

// absolute дополняет ссылку адресом сайта, если он задан.
func (u urls) absolute(link string) string {
	return u.siteURL + link
}
