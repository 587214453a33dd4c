package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gauthierbraillon/duofeed/internal/feed"
	"github.com/gauthierbraillon/duofeed/internal/partition"
)

func testItems() []feed.Item {
	return []feed.Item{
		feed.NewEmail("e1", "September 26, 2025", feed.Email{Sender: "Ana", Subject: "Lab report"}),
		feed.NewPost("p1", "September 25, 2025", feed.Post{PosterName: "Lee", ImageURL: "/a.png"}),
		feed.NewGroup("g1", "September 24, 2025", feed.Group{GroupName: "CS 101", GroupID: "42"}),
		feed.NewEmail("e2", "September 23, 2025", feed.Email{Sender: "Sam", Subject: "Dinner"}),
	}
}

func newTestServer(t *testing.T, source Source) *httptest.Server {
	t.Helper()
	p, err := partition.New(
		partition.WithClock(func() time.Time { return time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC) }),
		partition.WithLocation(time.UTC),
	)
	if err != nil {
		t.Fatalf("failed to create partitioner: %v", err)
	}
	srv := httptest.NewServer(New(source, p, WithAllowedOrigins("http://localhost:5173")).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func staticSource(items []feed.Item) Source {
	return SourceFunc(func(context.Context) ([]feed.Item, error) { return items, nil })
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestAC800_Feed_ReturnsBalancedColumns(t *testing.T) {
	srv := newTestServer(t, staticSource(testItems()))

	resp := get(t, srv.URL+"/api/feed")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("want JSON response, got %q", ct)
	}
	var got partition.Result
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("response should decode as a layout: %v", err)
	}
	if n := len(got.Column1) + len(got.Column2); n != 4 {
		t.Errorf("user should see all 4 items, got %d", n)
	}
	if got.Strategy == "" {
		t.Error("layout should name the winning strategy")
	}
}

func TestAC801_Feed_NamedStrategy(t *testing.T) {
	srv := newTestServer(t, staticSource(testItems()))

	resp := get(t, srv.URL+"/api/feed?strategy=alternating")

	var got partition.Result
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Strategy != partition.StrategyAlternating {
		t.Errorf("requested strategy should be used, got %q", got.Strategy)
	}
	if len(got.Column1) != 2 || got.Column1[0].ID != "e1" || got.Column1[1].ID != "g1" {
		t.Errorf("alternating should put even recency positions left, got %+v", got.Column1)
	}
}

func TestAC802_Feed_BadRequests(t *testing.T) {
	srv := newTestServer(t, staticSource(testItems()))

	for _, query := range []string{"strategy=masonry", "limit=-1", "limit=ten", "type=tweet"} {
		t.Run(query, func(t *testing.T) {
			resp := get(t, srv.URL+"/api/feed?"+query)

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("want 400, got %d", resp.StatusCode)
			}
			var body map[string]string
			_ = json.NewDecoder(resp.Body).Decode(&body)
			if body["error"] == "" {
				t.Error("error response should explain the problem")
			}
		})
	}
}

func TestAC803_Feed_SourceFailureIsBadGateway(t *testing.T) {
	srv := newTestServer(t, SourceFunc(func(context.Context) ([]feed.Item, error) {
		return nil, errors.New("gmail unreachable")
	}))

	resp := get(t, srv.URL+"/api/feed")

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("want 502, got %d", resp.StatusCode)
	}
}

func TestAC804_Items_FiltersAndLimits(t *testing.T) {
	srv := newTestServer(t, staticSource(testItems()))

	resp := get(t, srv.URL+"/api/items?type=email&limit=1")

	var got feed.Data
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(got.FeedItems) != 1 || got.FeedItems[0].ID != "e1" {
		t.Errorf("want newest email only, got %+v", got.FeedItems)
	}
}

func TestAC805_EmptyFeed(t *testing.T) {
	srv := newTestServer(t, staticSource(nil))

	resp := get(t, srv.URL+"/api/feed")

	var got map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	joined := strings.Join([]string{string(got["column1"]), string(got["column2"]), string(got["balanceScore"])}, " ")
	if joined != "[] [] 0" {
		t.Errorf("empty feed should be two empty columns with score 0, got %s", joined)
	}
}

func TestAC806_CORS_AllowsConfiguredOrigins(t *testing.T) {
	srv := newTestServer(t, staticSource(testItems()))

	cases := map[string]string{
		"http://localhost:5173": "http://localhost:5173",
		"http://evil.example":   "",
	}
	for origin, want := range cases {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
		req.Header.Set("Origin", origin)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		_ = resp.Body.Close()

		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != want {
			t.Errorf("origin %s: want allow-origin %q, got %q", origin, want, got)
		}
	}
}

func TestAC807_CORS_Preflight(t *testing.T) {
	srv := newTestServer(t, staticSource(testItems()))

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/feed", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight should succeed with 204, got %d", resp.StatusCode)
	}
}

func TestAC808_ListenAndServe_StopsOnCancel(t *testing.T) {
	p, _ := partition.New()
	s := New(staticSource(nil), p)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("graceful shutdown should not report an error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server should stop when the context is cancelled")
	}
}
