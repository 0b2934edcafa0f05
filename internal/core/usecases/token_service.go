package usecases

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/samirrijal/trainschedule/internal/core/domain"
	"github.com/samirrijal/trainschedule/internal/core/ports"
	"github.com/samirrijal/trainschedule/internal/pkg/metrics"
)

// Preference keys shared with the preferences store.
const (
	PrefAccessToken      = "access_token"
	PrefTokenExpireTime  = "token_expire_time"
	PrefCurrentPath      = "current_path"
	PrefSelectedDateTime = "selected_date_time"
)

// TokenService caches the API access token and refreshes it at half its lifetime.
type TokenService struct {
	source ports.TokenSource
	prefs  ports.PreferenceStore
	clock  ports.Clock
}

// NewTokenService creates a new TokenService.
func NewTokenService(source ports.TokenSource, prefs ports.PreferenceStore, clock ports.Clock) *TokenService {
	return &TokenService{source: source, prefs: prefs, clock: clock}
}

// AccessToken returns a usable bearer token. If a refresh fails the last cached
// token is returned, which may be empty.
func (s *TokenService) AccessToken(ctx context.Context) string {
	cached := s.cached(ctx)
	now := s.clock.Now()
	if cached.AccessToken != "" && !cached.Expired(now) {
		return cached.AccessToken
	}

	ctx, span := tracer.Start(ctx, "TokenService.refresh")
	defer span.End()

	grant, err := s.source.FetchToken(ctx)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		slog.WarnContext(ctx, "access token refresh failed, using cached token", "error", err)
		return cached.AccessToken
	}
	metrics.TokenRefreshes.WithLabelValues("ok").Inc()

	token := domain.Token{
		AccessToken: "Bearer " + grant.AccessToken,
		ExpiresAt:   now.UnixMilli() + grant.ExpiresIn*1000/2,
	}
	if err := s.prefs.Set(ctx, PrefAccessToken, token.AccessToken); err != nil {
		slog.WarnContext(ctx, "persist access token", "error", err)
	}
	if err := s.prefs.Set(ctx, PrefTokenExpireTime, strconv.FormatInt(token.ExpiresAt, 10)); err != nil {
		slog.WarnContext(ctx, "persist token expiry", "error", err)
	}
	return token.AccessToken
}

func (s *TokenService) cached(ctx context.Context) domain.Token {
	var t domain.Token
	tok, err := s.prefs.Get(ctx, PrefAccessToken)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.WarnContext(ctx, "read cached access token", "error", err)
	}
	t.AccessToken = tok

	exp, err := s.prefs.Get(ctx, PrefTokenExpireTime)
	if err != nil {
		return t
	}
	if ms, err := strconv.ParseInt(exp, 10, 64); err == nil {
		t.ExpiresAt = ms
	}
	return t
}
