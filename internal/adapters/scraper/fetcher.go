// Package scraper downloads HTML pages for the transfer search.
package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	resty "gopkg.in/resty.v1"
)

const userAgent = "Mozilla/5.0 (compatible; trainschedule/1.0)"

// Fetcher implements ports.DocumentFetcher.
type Fetcher struct {
	http *resty.Client
}

// New creates a new Fetcher with the given request timeout.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", userAgent).
			SetHeader("Accept", "text/html"),
	}
}

// FetchDocument downloads url and parses it as HTML.
func (f *Fetcher) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := f.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode())
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}
