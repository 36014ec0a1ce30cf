// Package site генерирует статический сайт из заметок.
package site

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"staticnotes/internal/notes/app/search"
	"staticnotes/internal/notes/config"
	"staticnotes/internal/notes/domain/entities"
	"staticnotes/internal/notes/ports/render"
	"staticnotes/internal/notes/ports/services"
	"staticnotes/pkg/logger"
)

// Константы для логирования.
const (
	LogBuildStarted   = "site build started"
	LogBuildFinished  = "site build finished"
	LogNoteVanished   = "note disappeared during build, skipping"
	LogBuildWithStale = "site built from stale cached data"

	ErrListNotes     = "failed to list notes"
	ErrFetchNote     = "failed to fetch note"
	ErrRenderNote    = "failed to render note"
	ErrRenderPage    = "failed to render page"
	ErrEncodeIndex   = "failed to encode search index"
	ErrLoadTemplates = "failed to load templates"
)

const (
	excerptLength = 200
	defaultWorker = 4
)

// Report - итог сборки.
type Report struct {
	OutputDir string
	Notes     int
	Pages     int
	Tags      int
	Skipped   int
	Files     int
	Stale     bool
	Duration  time.Duration
}

// Generator собирает сайт: список, страницы заметок и тегов, поисковый индекс, ленты и 404.
type Generator struct {
	svc services.NotesService
	md  render.Markdown
	cfg config.SiteConfig
	now func() time.Time
}

// NewGenerator создает генератор.
func NewGenerator(svc services.NotesService, md render.Markdown, cfg *config.SiteConfig) *Generator {
	return &Generator{
		svc: svc,
		md:  md,
		cfg: *cfg,
		now: time.Now,
	}
}

type siteView struct {
	Title       string
	Description string
	Author      string
	BasePath    string
	Generated   time.Time
	Stale       bool
}

type tagView struct {
	Name  string
	URL   string
	Count int
}

type noteView struct {
	ID        string
	Title     string
	URL       string
	Excerpt   string
	Tags      []tagView
	HTML      template.HTML
	CreatedAt *time.Time
	UpdatedAt *time.Time
	Modified  *time.Time

	note entities.Note
}

type pageData struct {
	Site  siteView
	Title string
	Notes []noteView
	Note  *noteView
	Tag   *tagView
	Tags  []tagView
}

type searchEntry struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Tags      []string   `json:"tags"`
	Excerpt   string     `json:"excerpt"`
	URL       string     `json:"url"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Build собирает сайт в каталог вывода. Прежнее содержимое каталога
// заменяется только после успешной сборки.
func (g *Generator) Build(ctx context.Context) (*Report, error) {
	start := g.now()
	log := logger.Log(ctx).With(zap.String("output_dir", g.cfg.OutputDir))
	log.Info(ctx, LogBuildStarted)

	u := newURLs(g.cfg.NormalizedBasePath(), g.cfg.URL)

	tpl, err := loadTemplates(g.cfg.TemplatesDir, u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrLoadTemplates, err)
	}

	list, err := g.svc.ListNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrListNotes, err)
	}

	out, err := newStaging(g.cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	defer out.discard()

	meta := siteView{
		Title:       g.cfg.Title,
		Description: g.cfg.Description,
		Author:      g.cfg.Author,
		BasePath:    u.basePath,
		Generated:   start,
	}

	views, stale, err := g.renderNotes(ctx, list.Notes, u)
	if err != nil {
		return nil, err
	}
	meta.Stale = stale || list.Stale

	report := &Report{
		OutputDir: out.final,
		Notes:     len(views),
		Skipped:   len(list.Notes) - len(views),
		Stale:     meta.Stale,
	}

	if err := g.writeNotePages(ctx, out, tpl, meta, views); err != nil {
		return nil, err
	}
	report.Pages += len(views)

	tagCloud, byTag := groupTags(views, u)
	report.Tags = len(tagCloud)

	if err := renderPage(out, tpl, tplIndex, "index.html", pageData{Site: meta, Title: meta.Title, Notes: views, Tags: tagCloud}); err != nil {
		return nil, err
	}
	report.Pages++

	for _, tag := range tagCloud {
		data := pageData{Site: meta, Title: "#" + tag.Name, Notes: byTag[tagSlug(tag.Name)], Tag: &tag}
		if err := renderPage(out, tpl, tplTag, tagPath(tag.Name), data); err != nil {
			return nil, err
		}
		report.Pages++
	}

	if err := renderPage(out, tpl, tplNotFound, "404.html", pageData{Site: meta, Title: "Not found"}); err != nil {
		return nil, err
	}
	report.Pages++

	if err := writeSearchIndex(out, views); err != nil {
		return nil, err
	}

	rss, atom, err := renderFeeds(buildFeed(meta, u, views, g.cfg.FeedLimit))
	if err != nil {
		return nil, err
	}
	if err := out.write("feed.xml", rss); err != nil {
		return nil, err
	}
	if err := out.write("atom.xml", atom); err != nil {
		return nil, err
	}

	if err := out.commit(); err != nil {
		return nil, err
	}

	report.Files = report.Pages + 3
	report.Duration = g.now().Sub(start)

	if report.Stale {
		log.Warn(ctx, LogBuildWithStale)
	}
	log.Info(ctx, LogBuildFinished,
		zap.Int("notes", report.Notes),
		zap.Int("pages", report.Pages),
		zap.Int("tags", report.Tags),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration))

	return report, nil
}

// renderNotes загружает каждую заметку и готовит ее к выводу.
// Заметки, удаленные после получения списка, пропускаются.
func (g *Generator) renderNotes(ctx context.Context, summaries []entities.Note, u urls) ([]noteView, bool, error) {
	workers := g.cfg.Workers
	if workers < 1 {
		workers = defaultWorker
	}

	results := make([]*noteView, len(summaries))
	var stale atomic.Bool

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, summary := range summaries {
		eg.Go(func() error {
			res, err := g.svc.GetNote(egCtx, summary.ID)
			if err != nil {
				if errors.Is(err, entities.ErrNotFound) {
					logger.Log(ctx).Warn(ctx, LogNoteVanished, zap.String("note_id", summary.ID))
					return nil
				}
				return fmt.Errorf("%s %s: %w", ErrFetchNote, summary.ID, err)
			}
			if res.Stale {
				stale.Store(true)
			}

			view, err := g.noteView(res.Note, u)
			if err != nil {
				return err
			}
			results[i] = view
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, false, err
	}

	notes := make([]entities.Note, 0, len(results))
	byID := make(map[string]*noteView, len(results))
	for _, v := range results {
		if v != nil {
			notes = append(notes, v.note)
			byID[v.ID] = v
		}
	}
	search.Sort(notes, search.SortUpdated)

	views := make([]noteView, 0, len(notes))
	for _, n := range notes {
		views = append(views, *byID[n.ID])
	}
	return views, stale.Load(), nil
}

func (g *Generator) noteView(note entities.Note, u urls) (*noteView, error) {
	html, err := g.md.Render(note.BodyMarkdown)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", ErrRenderNote, note.ID, err)
	}

	tags := make([]tagView, 0, len(note.Tags))
	for _, t := range entities.NormalizeTags(note.Tags) {
		tags = append(tags, tagView{Name: t, URL: u.tag(t)})
	}

	view := &noteView{
		ID:        note.ID,
		Title:     note.DisplayTitle(),
		URL:       u.note(note.ID),
		Excerpt:   search.Excerpt(g.md.PlainText(note.BodyMarkdown), excerptLength),
		Tags:      tags,
		HTML:      html,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
		note:      note,
	}
	if modified := note.LastModified(); !modified.IsZero() {
		view.Modified = &modified
	}
	return view, nil
}

func (g *Generator) writeNotePages(ctx context.Context, out *staging, tpl templateSet, meta siteView, views []noteView) error {
	workers := g.cfg.Workers
	if workers < 1 {
		workers = defaultWorker
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i := range views {
		view := &views[i]
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			data := pageData{Site: meta, Title: view.Title, Note: view}
			return renderPage(out, tpl, tplNote, notePath(view.ID), data)
		})
	}
	return eg.Wait()
}

// groupTags строит облако тегов и список заметок для каждого тега.
func groupTags(views []noteView, u urls) ([]tagView, map[string][]noteView) {
	notes := make([]entities.Note, len(views))
	for i, v := range views {
		notes[i] = v.note
	}

	counts := search.TagCounts(notes)
	cloud := make([]tagView, 0, len(counts))
	byTag := make(map[string][]noteView, len(counts))
	for _, c := range counts {
		cloud = append(cloud, tagView{Name: c.Tag, URL: u.tag(c.Tag), Count: c.Count})
	}
	for _, v := range views {
		for _, t := range v.Tags {
			key := tagSlug(t.Name)
			byTag[key] = append(byTag[key], v)
		}
	}
	return cloud, byTag
}

func renderPage(out *staging, tpl templateSet, name, rel string, data pageData) error {
	var buf bytes.Buffer
	if err := tpl[name].ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("%s %s: %w", ErrRenderPage, rel, err)
	}
	return out.write(rel, buf.Bytes())
}

func writeSearchIndex(out *staging, views []noteView) error {
	entries := make([]searchEntry, 0, len(views))
	for _, v := range views {
		tags := make([]string, 0, len(v.Tags))
		for _, t := range v.Tags {
			tags = append(tags, t.Name)
		}
		entries = append(entries, searchEntry{
			ID:        v.ID,
			Title:     v.Title,
			Tags:      tags,
			Excerpt:   v.Excerpt,
			URL:       v.URL,
			UpdatedAt: v.UpdatedAt,
		})
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrEncodeIndex, err)
	}
	return out.write("search.json", data)
}
