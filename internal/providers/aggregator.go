// Package providers aggregates open educational content from public sources
// (Wikipedia summaries, OpenAlex works, Open Library books). It backs the
// deep-dive intent when the institutional catalog has nothing on a topic.
package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWikipediaBase   = "https://pt.wikipedia.org"
	defaultOpenAlexBase    = "https://api.openalex.org"
	defaultOpenLibraryBase = "https://openlibrary.org"

	perSourceLimit = 5
	totalLimit     = 10
	fetchTimeout   = 6 * time.Second
)

// Item is one aggregated content reference.
type Item struct {
	Title   string
	Type    string // "resumo", "artigo", "livro"
	Source  string
	URL     string
	Snippet string
	Year    int
	Authors []string
}

// Aggregator fans out a search term to all sources concurrently. Individual
// source failures are absorbed; a search only fails if the term is empty.
type Aggregator struct {
	http *resty.Client

	WikipediaBase   string
	OpenAlexBase    string
	OpenLibraryBase string
}

// NewAggregator creates an Aggregator against the public endpoints.
func NewAggregator() *Aggregator {
	httpClient := resty.New().
		SetTimeout(fetchTimeout).
		SetHeader("User-Agent", "edbot/1.0 (+https://example.local)").
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(600 * time.Millisecond)

	httpClient.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		if r == nil {
			return false
		}
		code := r.StatusCode()
		return code == http.StatusTooManyRequests || code >= 500
	})

	return &Aggregator{
		http:            httpClient,
		WikipediaBase:   defaultWikipediaBase,
		OpenAlexBase:    defaultOpenAlexBase,
		OpenLibraryBase: defaultOpenLibraryBase,
	}
}

// Search queries all sources for term and returns the merged ranking:
// summaries first, then articles by year, then books, capped at ten items.
func (a *Aggregator) Search(ctx context.Context, term string) ([]Item, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("empty search term")
	}

	var mu sync.Mutex
	var items []Item
	collect := func(batch []Item) {
		mu.Lock()
		items = append(items, batch...)
		mu.Unlock()
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		collect(a.wikiSummary(gCtx, term))
		return nil
	})
	g.Go(func() error {
		collect(a.openAlexSearch(gCtx, term))
		return nil
	})
	g.Go(func() error {
		collect(a.openLibrarySearch(gCtx, term))
		return nil
	})
	g.Wait()

	sort.SliceStable(items, func(i, j int) bool {
		si, sj := typeRank(items[i].Type), typeRank(items[j].Type)
		if si != sj {
			return si > sj
		}
		return items[i].Year > items[j].Year
	})

	if len(items) > totalLimit {
		items = items[:totalLimit]
	}
	return items, nil
}

func typeRank(t string) int {
	switch t {
	case "resumo":
		return 3
	case "artigo":
		return 2
	case "livro":
		return 1
	default:
		return 0
	}
}

type wikiSummaryResponse struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

func (a *Aggregator) wikiSummary(ctx context.Context, term string) []Item {
	var out wikiSummaryResponse
	resp, err := a.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(a.WikipediaBase + "/api/rest_v1/page/summary/" + url.PathEscape(term))
	if err != nil || resp.StatusCode() != http.StatusOK || out.Extract == "" {
		return nil
	}
	return []Item{{
		Title:   out.Title,
		Type:    "resumo",
		Source:  "Wikipedia (pt)",
		URL:     out.ContentURLs.Desktop.Page,
		Snippet: out.Extract,
	}}
}

type openAlexResponse struct {
	Results []struct {
		Title           string `json:"title"`
		PublicationYear int    `json:"publication_year"`
		PrimaryLocation struct {
			LandingPageURL string `json:"landing_page_url"`
		} `json:"primary_location"`
		OpenAccess struct {
			OAURL string `json:"oa_url"`
		} `json:"open_access"`
		Authorships []struct {
			Author struct {
				DisplayName string `json:"display_name"`
			} `json:"author"`
		} `json:"authorships"`
	} `json:"results"`
}

func (a *Aggregator) openAlexSearch(ctx context.Context, term string) []Item {
	var out openAlexResponse
	resp, err := a.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"search":   term,
			"per_page": fmt.Sprintf("%d", perSourceLimit),
			"filter":   "language:pt|en",
			"sort":     "publication_year:desc",
		}).
		SetResult(&out).
		Get(a.OpenAlexBase + "/works")
	if err != nil || resp.StatusCode() != http.StatusOK {
		return nil
	}

	items := make([]Item, 0, len(out.Results))
	for _, w := range out.Results {
		link := w.PrimaryLocation.LandingPageURL
		if link == "" {
			link = w.OpenAccess.OAURL
		}
		authors := make([]string, 0, len(w.Authorships))
		for _, au := range w.Authorships {
			authors = append(authors, au.Author.DisplayName)
		}
		items = append(items, Item{
			Title:   w.Title,
			Type:    "artigo",
			Source:  "OpenAlex",
			URL:     link,
			Year:    w.PublicationYear,
			Authors: authors,
		})
	}
	return items
}

type openLibraryResponse struct {
	Docs []struct {
		Title            string   `json:"title"`
		Key              string   `json:"key"`
		FirstPublishYear int      `json:"first_publish_year"`
		AuthorName       []string `json:"author_name"`
		Subject          []string `json:"subject"`
	} `json:"docs"`
}

func (a *Aggregator) openLibrarySearch(ctx context.Context, term string) []Item {
	var out openLibraryResponse
	resp, err := a.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        term,
			"limit":    fmt.Sprintf("%d", perSourceLimit),
			"language": "por",
		}).
		SetResult(&out).
		Get(a.OpenLibraryBase + "/search.json")
	if err != nil || resp.StatusCode() != http.StatusOK {
		return nil
	}

	items := make([]Item, 0, len(out.Docs))
	for _, b := range out.Docs {
		link := ""
		if b.Key != "" {
			link = a.OpenLibraryBase + b.Key
		}
		subjects := b.Subject
		if len(subjects) > 6 {
			subjects = subjects[:6]
		}
		items = append(items, Item{
			Title:   b.Title,
			Type:    "livro",
			Source:  "Open Library",
			URL:     link,
			Snippet: strings.Join(subjects, ", "),
			Year:    b.FirstPublishYear,
			Authors: b.AuthorName,
		})
	}
	return items
}

// Digest renders the items as a numbered markdown listing headed by the
// search term.
func Digest(term string, items []Item) string {
	if len(items) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "### Conteúdos sobre **%s**\n\n", term)
	for i, x := range items {
		title := x.Title
		if title == "" {
			title = "(sem título)"
		}
		yearTxt := ""
		if x.Year > 0 {
			yearTxt = fmt.Sprintf(" • %d", x.Year)
		}
		fmt.Fprintf(&sb, "%d. [%s](%s) — _%s • %s%s_\n", i+1, title, x.URL, capitalize(x.Type), x.Source, yearTxt)
		if snippet := strings.TrimSpace(x.Snippet); snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", snippet)
		}
	}
	return sb.String()
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
