package scraper_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samirrijal/trainschedule/internal/adapters/scraper"
)

func TestFetchDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("rideDate") != "2024/03/01" {
			http.Error(w, "bad date", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><div class="detail-box-td">ok</div></body></html>`))
	}))
	defer srv.Close()

	f := scraper.New(5 * time.Second)
	doc, err := f.FetchDocument(context.Background(), srv.URL+"/search?rideDate=2024/03/01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := doc.Find(".detail-box-td").Text(); got != "ok" {
		t.Errorf("expected ok, got %q", got)
	}

	if _, err := f.FetchDocument(context.Background(), srv.URL+"/search"); err == nil {
		t.Error("expected error on 400")
	}
}
