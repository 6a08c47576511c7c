package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearch(t *testing.T) {
	var gotReq SearchRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q, want /search", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		_ = json.NewEncoder(w).Encode(SearchResponse{
			Query: gotReq.Query,
			Results: []SearchResult{
				{Title: "Photosynthesis", URL: "https://example.org", Content: "Plants make food.", Score: 0.92},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{
		APIKey:         "tvly-test",
		BaseURL:        srv.URL,
		MaxResults:     3,
		IncludeDomains: []string{"https://lms.kec.ac.ke/"},
	}, srv.Client(), nil)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	resp, err := client.Search(context.Background(), "grade 4 science photosynthesis Kenya syllabus")
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	if gotReq.APIKey != "tvly-test" {
		t.Errorf("request api_key = %q", gotReq.APIKey)
	}
	if gotReq.MaxResults != 3 {
		t.Errorf("request max_results = %d, want 3", gotReq.MaxResults)
	}
	if !gotReq.IncludeRawContent {
		t.Error("request include_raw_content = false, want true")
	}
	if len(gotReq.IncludeDomains) != 1 || gotReq.IncludeDomains[0] != "https://lms.kec.ac.ke/" {
		t.Errorf("request include_domains = %v", gotReq.IncludeDomains)
	}
	if len(resp.Results) != 1 || resp.Results[0].Title != "Photosynthesis" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
}

func TestSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "tvly-test", BaseURL: srv.URL}, srv.Client(), nil)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	if _, err := client.Search(context.Background(), "anything"); err == nil {
		t.Fatal("Search() succeeded on a 429 response")
	}
}

func TestSearchValidation(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "https://api.tavily.com"}, nil, nil); err == nil {
		t.Error("NewClient() accepted empty API key")
	}

	client, err := NewClient(Config{APIKey: "k", BaseURL: "https://api.tavily.com"}, nil, nil)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if _, err := client.Search(context.Background(), ""); err == nil {
		t.Error("Search() accepted empty query")
	}
}
