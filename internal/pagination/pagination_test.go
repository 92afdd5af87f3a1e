package pagination

import (
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestFromQuery(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int32
		wantLimit int32
	}{
		{name: "defaults", query: "", wantPage: 1, wantLimit: DefaultLimit},
		{name: "explicit page and limit", query: "page=3&limit=10", wantPage: 3, wantLimit: 10},
		{name: "limit clamped", query: "limit=9999", wantPage: 1, wantLimit: MaxLimit},
		{name: "zero page ignored", query: "page=0", wantPage: 1, wantLimit: DefaultLimit},
		{name: "negative values ignored", query: "page=-2&limit=-5", wantPage: 1, wantLimit: DefaultLimit},
		{name: "garbage ignored", query: "page=abc&limit=xyz", wantPage: 1, wantLimit: DefaultLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("parsing query: %v", err)
			}
			p := FromQuery(q)
			if p.Page != tt.wantPage {
				t.Errorf("expected page %d, got %d", tt.wantPage, p.Page)
			}
			if p.Limit != tt.wantLimit {
				t.Errorf("expected limit %d, got %d", tt.wantLimit, p.Limit)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	p := Params{Page: 3, Limit: 10}
	if got := p.Offset(); got != 20 {
		t.Errorf("expected offset 20, got %d", got)
	}
}

func TestNewPageLinks(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/recipes?page=2&limit=2", nil)
	page := NewPage("http://localhost:8080", r, Params{Page: 2, Limit: 2}, 5, []int{3, 4})

	if page.Count != 5 {
		t.Errorf("expected count 5, got %d", page.Count)
	}
	if page.Next == nil {
		t.Fatal("expected a next link")
	}
	if page.Previous == nil {
		t.Fatal("expected a previous link")
	}

	next, err := url.Parse(*page.Next)
	if err != nil {
		t.Fatalf("parsing next link: %v", err)
	}
	if next.Scheme != "http" || next.Host != "localhost:8080" {
		t.Errorf("expected an absolute next link, got %q", *page.Next)
	}
	if next.Path != "/api/recipes" {
		t.Errorf("unexpected next path %q", next.Path)
	}
	if next.Query().Get("page") != "3" {
		t.Errorf("expected next page 3, got %q", next.Query().Get("page"))
	}
	if next.Query().Get("limit") != "2" {
		t.Errorf("expected limit carried over, got %q", next.Query().Get("limit"))
	}

	prev, err := url.Parse(*page.Previous)
	if err != nil {
		t.Fatalf("parsing previous link: %v", err)
	}
	if prev.Query().Get("page") != "1" {
		t.Errorf("expected previous page 1, got %q", prev.Query().Get("page"))
	}
}

func TestNewPageBoundaries(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/recipes", nil)

	first := NewPage("http://localhost:8080", r, Params{Page: 1, Limit: 6}, 5, []int{1, 2, 3, 4, 5})
	if first.Next != nil {
		t.Error("expected no next link on the only page")
	}
	if first.Previous != nil {
		t.Error("expected no previous link on the first page")
	}

	empty := NewPage[int]("http://localhost:8080", r, Params{Page: 1, Limit: 6}, 0, nil)
	if empty.Results == nil {
		t.Error("expected empty results slice, not nil")
	}
}
