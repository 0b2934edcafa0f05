package workflows_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/trainschedule/internal/core/domain"
	"github.com/samirrijal/trainschedule/internal/workflows"
)

type mockCatalog struct {
	refreshes atomic.Int32
	refreshFn func() domain.Result[bool]
	stations  []domain.Station
	lines     []domain.Line
}

func (m *mockCatalog) Refresh(context.Context) domain.Result[bool] {
	m.refreshes.Add(1)
	if m.refreshFn != nil {
		return m.refreshFn()
	}
	return domain.Success(true)
}

func (m *mockCatalog) AllStations(context.Context) ([]domain.Station, error) { return m.stations, nil }
func (m *mockCatalog) Lines(context.Context) ([]domain.Line, error)          { return m.lines, nil }

type mockNotifier struct {
	calls atomic.Int32
	err   error
}

func (n *mockNotifier) PublishCatalogRefreshed(context.Context, time.Time) error {
	n.calls.Add(1)
	return n.err
}

func catalogFixture() *mockCatalog {
	return &mockCatalog{
		stations: []domain.Station{
			{ID: "1000", County: domain.Name{Zh: "臺北市"}},
			{ID: "1020", County: domain.Name{Zh: "新北市"}},
			{ID: "1030", County: domain.Name{Zh: "新北市"}},
		},
		lines: []domain.Line{{ID: "WL"}},
	}
}

func run(t *testing.T, acts *workflows.CatalogActivities, input workflows.CatalogSyncInput) (workflows.CatalogSummary, error) {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.CatalogSyncWorkflow)
	env.RegisterActivity(acts)

	env.ExecuteWorkflow(workflows.CatalogSyncWorkflow, input)
	if !env.IsWorkflowCompleted() {
		t.Fatal("expected workflow to complete")
	}
	var summary workflows.CatalogSummary
	if err := env.GetWorkflowError(); err != nil {
		return summary, err
	}
	if err := env.GetWorkflowResult(&summary); err != nil {
		t.Fatalf("workflow result: %v", err)
	}
	return summary, nil
}

func TestCatalogSync_Success(t *testing.T) {
	catalog := catalogFixture()
	notifier := &mockNotifier{}

	summary, err := run(t, &workflows.CatalogActivities{Catalog: catalog, Notifier: notifier},
		workflows.CatalogSyncInput{Trigger: "manual", MinStations: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Stations != 3 || summary.Lines != 1 || summary.Counties != 2 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if !summary.Announced || notifier.calls.Load() != 1 {
		t.Errorf("expected one announcement, got %d", notifier.calls.Load())
	}
	if summary.Trigger != "manual" || summary.SyncedAt.IsZero() {
		t.Errorf("expected trigger and sync time, got %+v", summary)
	}
}

func TestCatalogSync_UpstreamErrorIsNotRetried(t *testing.T) {
	catalog := catalogFixture()
	catalog.refreshFn = func() domain.Result[bool] {
		return domain.Error[bool](errors.New("status 500"))
	}

	_, err := run(t, &workflows.CatalogActivities{Catalog: catalog}, workflows.CatalogSyncInput{Trigger: "schedule"})
	if err == nil {
		t.Fatal("expected error")
	}
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) || appErr.Type() != workflows.ErrTypeUpstream {
		t.Errorf("expected %s application error, got %v", workflows.ErrTypeUpstream, err)
	}
	if n := catalog.refreshes.Load(); n != 1 {
		t.Errorf("expected 1 refresh attempt, got %d", n)
	}
}

func TestCatalogSync_TooSmall(t *testing.T) {
	_, err := run(t, &workflows.CatalogActivities{Catalog: catalogFixture()},
		workflows.CatalogSyncInput{Trigger: "schedule", MinStations: 100})
	if err == nil {
		t.Fatal("expected error for a short catalog")
	}
}

func TestCatalogSync_AnnounceFailureKeepsRefresh(t *testing.T) {
	notifier := &mockNotifier{err: errors.New("nats: no responders")}

	summary, err := run(t, &workflows.CatalogActivities{Catalog: catalogFixture(), Notifier: notifier},
		workflows.CatalogSyncInput{Trigger: "schedule"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Announced {
		t.Error("expected announcement to be reported as failed")
	}
	if summary.Stations != 3 {
		t.Errorf("expected 3 stations, got %d", summary.Stations)
	}
}

func TestRefreshCatalog_OfflineIsRetryable(t *testing.T) {
	catalog := catalogFixture()
	catalog.refreshFn = func() domain.Result[bool] { return domain.Fail[bool](domain.MsgNotConnected) }
	acts := &workflows.CatalogActivities{Catalog: catalog}

	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivity(acts)

	_, err := env.ExecuteActivity(acts.RefreshCatalog)
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected application error, got %v", err)
	}
	if appErr.Type() != workflows.ErrTypeOffline || appErr.NonRetryable() {
		t.Errorf("expected retryable %s, got %s (non-retryable %v)", workflows.ErrTypeOffline, appErr.Type(), appErr.NonRetryable())
	}
}
