// Package content is the read-only façade over the institutional content
// catalog: disciplines, topic deep dives, institutional info and videos.
package content

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client queries the catalog API. It owns the discipline alias cache.
type Client struct {
	http *resty.Client

	mu            sync.Mutex
	aliases       map[string]string
	aliasesLoaded bool
}

// NewClient creates a catalog client for baseURL. Transport failures are
// retried with backoff; callers still must treat any returned error as
// "nothing found".
func NewClient(baseURL string, timeout time.Duration, retries int) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)

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

	return &Client{http: httpClient, aliases: make(map[string]string)}
}

type disciplinesResponse struct {
	Disciplines []Discipline `json:"disciplinas"`
}

// Disciplines lists all catalog disciplines.
func (c *Client) Disciplines(ctx context.Context) ([]Discipline, error) {
	var out disciplinesResponse
	if err := c.get(ctx, "/disciplinas", nil, &out); err != nil {
		return nil, err
	}
	return out.Disciplines, nil
}

// Contents returns the topic listing for a discipline.
func (c *Client) Contents(ctx context.Context, discipline string) (DisciplineContents, error) {
	var out DisciplineContents
	err := c.get(ctx, "/disciplinas/conteudos", map[string]string{"disciplina": discipline}, &out)
	if err != nil {
		return DisciplineContents{}, err
	}
	if out.Discipline == "" {
		out.Discipline = discipline
	}
	return out, nil
}

// DeepDive returns the long-form explanation for a topic.
func (c *Client) DeepDive(ctx context.Context, topic string) (DeepDive, error) {
	var out DeepDive
	err := c.get(ctx, "/disciplinas/conteudos/aprofundamento", map[string]string{"topico": topic}, &out)
	if err != nil {
		return DeepDive{}, err
	}
	if out.Text == "" {
		return DeepDive{}, ErrNotFound
	}
	return out, nil
}

type locationsResponse struct {
	Campi []CampusLocations `json:"campi"`
}

// Locations lists every known service location grouped by campus.
func (c *Client) Locations(ctx context.Context) ([]CampusLocations, error) {
	var out locationsResponse
	if err := c.get(ctx, "/institucional/locais", nil, &out); err != nil {
		return nil, err
	}
	return out.Campi, nil
}

// Hours returns the opening hours of a location at a campus.
func (c *Client) Hours(ctx context.Context, local, campus string) (HoursInfo, error) {
	var out HoursInfo
	err := c.get(ctx, "/institucional/horarios", map[string]string{"local": local, "campus": campus}, &out)
	if err != nil {
		return HoursInfo{}, err
	}
	if len(out.Horarios) == 0 {
		return HoursInfo{}, ErrNotFound
	}
	return out, nil
}

// FAQ returns the institutional FAQ of a location at a campus.
func (c *Client) FAQ(ctx context.Context, local, campus string) (FAQInfo, error) {
	var out FAQInfo
	err := c.get(ctx, "/institucional/faq", map[string]string{"local": local, "campus": campus}, &out)
	if err != nil {
		return FAQInfo{}, err
	}
	if len(out.Items) == 0 {
		return FAQInfo{}, ErrNotFound
	}
	return out, nil
}

// Contacts returns the contact info of a location at a campus.
func (c *Client) Contacts(ctx context.Context, local, campus string) (ContactsInfo, error) {
	var out ContactsInfo
	err := c.get(ctx, "/institucional/contatos", map[string]string{"local": local, "campus": campus}, &out)
	if err != nil {
		return ContactsInfo{}, err
	}
	if out.Phone == "" && out.Email == "" {
		return ContactsInfo{}, ErrNotFound
	}
	return out, nil
}

type videosResponse struct {
	Videos []Video `json:"videos"`
}

// Videos searches educational videos about a subject.
func (c *Client) Videos(ctx context.Context, subject string) ([]Video, error) {
	var out videosResponse
	if err := c.get(ctx, "/videos", map[string]string{"assunto": subject}, &out); err != nil {
		return nil, err
	}
	return out.Videos, nil
}

// Normalize maps a user-supplied discipline spelling to its canonical catalog
// id through the alias table. Unknown spellings pass through lower-cased and
// trimmed. The alias table is loaded lazily once and cached; a failed load
// falls back to identity so classification never blocks on the catalog.
func (c *Client) Normalize(ctx context.Context, raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return ""
	}

	aliases, err := c.loadAliases(ctx)
	if err != nil {
		return key
	}
	if id, ok := aliases[key]; ok {
		return id
	}
	return key
}

// InvalidateAliases drops the cached alias table so the next Normalize call
// reloads it from the catalog.
func (c *Client) InvalidateAliases() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aliasesLoaded = false
	c.aliases = make(map[string]string)
}

func (c *Client) loadAliases(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.aliasesLoaded {
		return c.aliases, nil
	}

	disciplines, err := c.Disciplines(ctx)
	if err != nil {
		return nil, err
	}

	table := make(map[string]string)
	for _, d := range disciplines {
		id := strings.ToLower(strings.TrimSpace(d.ID))
		if id == "" {
			continue
		}
		keys := append([]string{d.ID, d.Name}, d.Aliases...)
		for _, k := range keys {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				table[k] = id
			}
		}
	}

	c.aliases = table
	c.aliasesLoaded = true
	return c.aliases, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	req := c.http.R().SetContext(ctx).SetResult(out)
	if params != nil {
		req.SetQueryParams(params)
	}
	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.IsError() {
		return fmt.Errorf("catalog returned status %d for %s", resp.StatusCode(), path)
	}
	return nil
}
