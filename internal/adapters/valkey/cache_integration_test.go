//go:build integration

package valkey_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/samirrijal/trainschedule/internal/adapters/valkey"
	"github.com/samirrijal/trainschedule/internal/core/domain"
	"github.com/samirrijal/trainschedule/internal/pkg/config"
)

func setupCache(t *testing.T) *valkey.Cache {
	t.Helper()
	cfg, err := config.Load("trainschedule-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	c, err := valkey.New(cfg.Valkey.Addr, "test:"+uuid.NewString()+":")
	if err != nil {
		t.Fatalf("connect valkey: %v", err)
	}
	t.Cleanup(c.Close)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	return c
}

func TestCache_GetSetDelete(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	if _, err := c.Get(ctx, "catalog:stations"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := c.Set(ctx, "catalog:stations", []byte(`[{"id":"1000"}]`), 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, "catalog:stations")
	if err != nil || string(got) != `[{"id":"1000"}]` {
		t.Fatalf("unexpected value %q (%v)", got, err)
	}
	if err := c.Delete(ctx, "catalog:stations"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Get(ctx, "catalog:stations"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPreferences(t *testing.T) {
	prefs := valkey.NewPreferences(setupCache(t), "preferences")
	ctx := context.Background()

	if _, err := prefs.Get(ctx, "access_token"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := prefs.Set(ctx, "access_token", "Bearer x"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, err := prefs.Get(ctx, "access_token"); err != nil || v != "Bearer x" {
		t.Errorf("expected Bearer x, got %q (%v)", v, err)
	}
}
