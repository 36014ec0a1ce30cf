package site

import (
	"fmt"
	"time"

	"github.com/gorilla/feeds"
)

// Константы для сообщений об ошибках лент.
const (
	ErrRenderRSS  = "failed to render rss feed"
	ErrRenderAtom = "failed to render atom feed"
)

// buildFeed собирает ленту из последних заметок. notes уже отсортированы.
func buildFeed(meta siteView, u urls, notes []noteView, limit int) *feeds.Feed {
	home := u.absolute(meta.BasePath)

	feed := &feeds.Feed{
		Title:       meta.Title,
		Link:        &feeds.Link{Href: home},
		Description: meta.Description,
		Id:          home,
		Created:     meta.Generated,
		Updated:     meta.Generated,
	}
	if meta.Author != "" {
		feed.Author = &feeds.Author{Name: meta.Author}
	}

	if limit > 0 && len(notes) > limit {
		notes = notes[:limit]
	}

	feed.Items = make([]*feeds.Item, 0, len(notes))
	for _, n := range notes {
		link := u.absolute(n.URL)
		item := &feeds.Item{
			Title:       n.Title,
			Link:        &feeds.Link{Href: link},
			Id:          link,
			Description: n.Excerpt,
			Content:     string(n.HTML),
			Created:     timeOr(n.CreatedAt, n.Modified, meta.Generated),
			Updated:     timeOr(n.UpdatedAt, n.Modified, meta.Generated),
		}
		feed.Items = append(feed.Items, item)
	}
	return feed
}

func timeOr(primary, secondary *time.Time, fallback time.Time) time.Time {
	if primary != nil {
		return *primary
	}
	if secondary != nil {
		return *secondary
	}
	return fallback
}

func renderFeeds(feed *feeds.Feed) (rss, atom []byte, err error) {
	rssText, err := feed.ToRss()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", ErrRenderRSS, err)
	}
	atomText, err := feed.ToAtom()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", ErrRenderAtom, err)
	}
	return []byte(rssText), []byte(atomText), nil
}
