// Package content loads the embedded marketing copy shown on the landing view.
package content

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

//go:embed pages/*.md
var pages embed.FS

// ErrNotFound is returned when no page exists for a slug.
var ErrNotFound = errors.New("content: page not found")

// Page is a rendered markdown page.
type Page struct {
	Slug    string
	Title   string
	Tagline string
	Summary string
	// HTML is sanitised and safe to insert as-is.
	HTML string
}

type frontMatter struct {
	Title   string `yaml:"title"`
	Tagline string `yaml:"tagline"`
	Summary string `yaml:"summary"`
}

// Loader renders pages from a filesystem of markdown files and caches the result.
type Loader struct {
	fsys     fs.FS
	markdown goldmark.Markdown
	policy   *bluemonday.Policy

	mu    sync.RWMutex
	cache map[string]Page
}

// NewLoader renders pages found in fsys. A nil fsys uses the embedded pages.
func NewLoader(fsys fs.FS) *Loader {
	if fsys == nil {
		sub, err := fs.Sub(pages, "pages")
		if err != nil {
			panic(err)
		}
		fsys = sub
	}
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	return &Loader{
		fsys:     fsys,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:   policy,
		cache:    map[string]Page{},
	}
}

// Landing returns the landing page.
func (l *Loader) Landing() (Page, error) {
	return l.Get("landing")
}

// Get renders the page stored as <slug>.md.
func (l *Loader) Get(slug string) (Page, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" || strings.ContainsAny(slug, `/\.`) {
		return Page{}, ErrNotFound
	}

	l.mu.RLock()
	page, ok := l.cache[slug]
	l.mu.RUnlock()
	if ok {
		return page, nil
	}

	data, err := fs.ReadFile(l.fsys, slug+".md")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Page{}, ErrNotFound
		}
		return Page{}, fmt.Errorf("content: read %s: %w", slug, err)
	}

	page, err = l.render(slug, data)
	if err != nil {
		return Page{}, err
	}

	l.mu.Lock()
	l.cache[slug] = page
	l.mu.Unlock()
	return page, nil
}

func (l *Loader) render(slug string, data []byte) (Page, error) {
	fm, body := splitFrontMatter(string(data))
	front := frontMatter{}
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, fmt.Errorf("content: parse front matter %s: %w", slug, err)
		}
	}

	var buf bytes.Buffer
	if err := l.markdown.Convert([]byte(body), &buf); err != nil {
		return Page{}, fmt.Errorf("content: render %s: %w", slug, err)
	}

	page := Page{
		Slug:    slug,
		Title:   strings.TrimSpace(front.Title),
		Tagline: strings.TrimSpace(front.Tagline),
		Summary: strings.TrimSpace(front.Summary),
		HTML:    l.policy.Sanitize(buf.String()),
	}
	if page.Title == "" {
		page.Title = slug
	}
	return page, nil
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}
