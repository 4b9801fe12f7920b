package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"dart-scoring-server/config"
	"dart-scoring-server/matcherrors"
	"dart-scoring-server/storage"
	"dart-scoring-server/variant"
)

type fakeValidator struct{}

func (fakeValidator) Owner(token string) (string, error) {
	if token == "good" {
		return "user:u-1", nil
	}
	return "", matcherrors.ErrInvalidToken
}

func newTestRouter(t *testing.T, store storage.MatchStore) http.Handler {
	t.Helper()
	h := NewHandler(config.Defaults(), variant.DefaultCatalog(), store, fakeValidator{})
	return NewRouter(h, nil)
}

func get(t *testing.T, h http.Handler, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func seededStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	s, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(s.Close)
	at := time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC)
	for i, r := range []storage.MatchResult{
		{ID: "m-1", Owner: "user:u-1", Variant: "x01", Players: []string{"Ann", "Bob"}, Winner: "Ann", Turns: 10, PlayedAt: at},
		{ID: "m-2", Owner: "device:kitchen", Variant: "x01", Players: []string{"Cid", "Ann"}, Winner: "Ann", Turns: 14, PlayedAt: at.Add(time.Hour)},
	} {
		if err := s.InsertMatchResult(context.Background(), r); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	return s
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestRouter(t, nil), "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestVariants(t *testing.T) {
	rec := get(t, newTestRouter(t, nil), "/api/variants", nil)
	var groups []variant.Group
	if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(groups) != 3 || groups[0].Variant != variant.X01ID {
		t.Fatalf("expected 3 groups starting with x01, got %+v", groups)
	}
	if groups[0].Options[0].ID != "501" {
		t.Errorf("expected first option 501, got %s", groups[0].Options[0].ID)
	}
}

func TestFinish(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := get(t, r, "/api/finish?score=170", nil)
	var resp FinishResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Suggestion == nil || resp.Suggestion.Darts != 3 {
		t.Errorf("expected a three-dart checkout for 170, got %+v", resp.Suggestion)
	}

	rec = get(t, r, "/api/finish?score=169", nil)
	resp = FinishResponse{}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Suggestion != nil {
		t.Errorf("expected no checkout for 169, got %+v", resp.Suggestion)
	}

	if rec := get(t, r, "/api/finish?score=abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad score, got %d", rec.Code)
	}
}

func TestHistoryScopes(t *testing.T) {
	r := newTestRouter(t, seededStore(t))

	tests := []struct {
		name   string
		target string
		header map[string]string
		want   []string
	}{
		{"all", "/api/history", nil, []string{"m-2", "m-1"}},
		{"token", "/api/history", map[string]string{"Authorization": "Bearer good"}, []string{"m-1"}},
		{"device", "/api/history?deviceKey=kitchen", nil, []string{"m-2"}},
	}
	for _, tt := range tests {
		rec := get(t, r, tt.target, tt.header)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tt.name, rec.Code)
		}
		var list []storage.MatchResult
		if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
			t.Fatalf("%s: decode: %v", tt.name, err)
		}
		if len(list) != len(tt.want) {
			t.Fatalf("%s: expected %d matches, got %d", tt.name, len(tt.want), len(list))
		}
		for i, id := range tt.want {
			if list[i].ID != id {
				t.Errorf("%s: expected match %d = %s, got %s", tt.name, i, id, list[i].ID)
			}
		}
	}

	if rec := get(t, r, "/api/history", map[string]string{"Authorization": "Bearer bad"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a bad token, got %d", rec.Code)
	}
}

func TestLeaderboard(t *testing.T) {
	rec := get(t, newTestRouter(t, seededStore(t)), "/api/leaderboard?limit=2", nil)
	var resp LeaderboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(resp.Entries))
	}
	if resp.Entries[0].Player != "Ann" || resp.Entries[0].Wins != 2 {
		t.Errorf("expected Ann first with 2 wins, got %+v", resp.Entries[0])
	}
}

func TestWithoutStoreListsAreEmpty(t *testing.T) {
	r := newTestRouter(t, nil)
	rec := get(t, r, "/api/history", nil)
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("expected an empty list, got %q", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/variants", nil)
	req.Header.Set("Origin", "https://darts.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected Access-Control-Allow-Origin=*, got %q", got)
	}
}
