package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestCatalog(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second, 0)
}

const disciplinesJSON = `{"disciplinas":[
	{"id":"mat01","nome":"Matemática","aliases":["matematica","math"]},
	{"id":"bio01","nome":"Biologia","aliases":[]}
]}`

func TestDisciplines(t *testing.T) {
	c := newTestCatalog(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/disciplinas" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(disciplinesJSON))
	}))

	got, err := c.Disciplines(context.Background())
	if err != nil {
		t.Fatalf("Disciplines error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "mat01" || got[0].Name != "Matemática" {
		t.Errorf("first discipline = %+v", got[0])
	}
}

func TestNormalize(t *testing.T) {
	var calls atomic.Int32
	c := newTestCatalog(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(disciplinesJSON))
	}))

	ctx := context.Background()
	tests := []struct {
		in, want string
	}{
		{"Matemática", "mat01"},
		{"  MATH  ", "mat01"},
		{"matematica", "mat01"},
		{"biologia", "bio01"},
		{"química", "química"}, // unknown passes through normalized
		{"", ""},
	}
	for _, tt := range tests {
		if got := c.Normalize(ctx, tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if calls.Load() != 1 {
		t.Errorf("alias table loaded %d times, want 1 (cached)", calls.Load())
	}

	c.InvalidateAliases()
	c.Normalize(ctx, "math")
	if calls.Load() != 2 {
		t.Errorf("alias table loaded %d times after invalidate, want 2", calls.Load())
	}
}

func TestNormalize_CatalogDownFallsBackToIdentity(t *testing.T) {
	c := newTestCatalog(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if got := c.Normalize(context.Background(), " Matemática "); got != "matemática" {
		t.Errorf("Normalize = %q, want identity fallback", got)
	}
}

func TestDeepDive_NotFound(t *testing.T) {
	c := newTestCatalog(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))

	if _, err := c.DeepDive(context.Background(), "fotossíntese"); err != ErrNotFound {
		t.Errorf("DeepDive err = %v, want ErrNotFound", err)
	}
}

func TestHours(t *testing.T) {
	c := newTestCatalog(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("local") != "biblioteca" || r.URL.Query().Get("campus") != "São Leopoldo" {
			w.Write([]byte(`{}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"local":"biblioteca","campus":"São Leopoldo","horarios":["Seg-Sex 8h às 22h"]}`))
	}))

	got, err := c.Hours(context.Background(), "biblioteca", "São Leopoldo")
	if err != nil {
		t.Fatalf("Hours error: %v", err)
	}
	if len(got.Horarios) != 1 {
		t.Errorf("Horarios = %v", got.Horarios)
	}

	if _, err := c.Hours(context.Background(), "piscina", "São Leopoldo"); err != ErrNotFound {
		t.Errorf("unknown local err = %v, want ErrNotFound", err)
	}
}

func TestGet_HTTP404MapsToNotFound(t *testing.T) {
	c := newTestCatalog(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	if _, err := c.Contents(context.Background(), "mat01"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSummarizeTopics(t *testing.T) {
	topics := []Topic{
		{Title: "Frações", SimplifiedText: "Partes de um todo.", Example: "1/2 de uma pizza."},
		{Title: "Equações", SimplifiedText: "Igualdades com incógnita."},
		{Title: "Funções", SimplifiedText: "Relações entre conjuntos."},
		{Title: "Extra", SimplifiedText: "Nunca aparece."},
	}

	got := SummarizeTopics(topics)
	want := "- Frações: Partes de um todo. Ex.: 1/2 de uma pizza.\n" +
		"- Equações: Igualdades com incógnita.\n" +
		"- Funções: Relações entre conjuntos."
	if got != want {
		t.Errorf("SummarizeTopics =\n%q\nwant\n%q", got, want)
	}
}

func TestSummarizeTopics_Empty(t *testing.T) {
	if got := SummarizeTopics(nil); got != "" {
		t.Errorf("SummarizeTopics(nil) = %q, want empty", got)
	}
}
