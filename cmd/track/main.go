// Command track resolves a train's schedule and follows it on the live board,
// printing one line per observation until the train finishes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/samirrijal/trainschedule/internal/adapters/memory"
	natsadapter "github.com/samirrijal/trainschedule/internal/adapters/nats"
	"github.com/samirrijal/trainschedule/internal/adapters/netcheck"
	"github.com/samirrijal/trainschedule/internal/adapters/tdx"
	"github.com/samirrijal/trainschedule/internal/core/domain"
	"github.com/samirrijal/trainschedule/internal/core/ports"
	"github.com/samirrijal/trainschedule/internal/core/usecases"
	"github.com/samirrijal/trainschedule/internal/pkg/config"
	"github.com/samirrijal/trainschedule/internal/pkg/logging"
)

func main() {
	var (
		date    = pflag.StringP("date", "d", "", "travel date YYYY-MM-DD (default today)")
		from    = pflag.String("from", "", "departure station id of the searched path")
		to      = pflag.String("to", "", "arrival station id of the searched path")
		asJSON  = pflag.Bool("json", false, "print states as JSON lines")
		publish = pflag.Bool("publish", false, "publish states to NATS (needs nats.enabled)")
	)
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: track [flags] <train-number>")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}
	trainNo := pflag.Arg(0)

	cfg, err := config.Load("trainschedule-track")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.SetupWriter(os.Stderr, cfg.Log.Level, "text")

	clock := usecases.SystemClock{}
	queryDate := domain.Day(clock.Now())
	if *date != "" {
		if queryDate, err = time.ParseInLocation(domain.DateLayout, *date, domain.Taipei); err != nil {
			log.Fatalf("--date must be YYYY-MM-DD")
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var publisher ports.TrackingPublisher
	if *publish {
		if !cfg.NATS.Enabled {
			log.Fatal("--publish needs nats.enabled")
		}
		pub, err := natsadapter.NewPublisher(ctx, cfg.NATS.URL)
		if err != nil {
			log.Fatalf("nats: %v", err)
		}
		defer pub.Close()
		publisher = pub
	}

	api := tdx.New(tdx.Config{
		BaseURL:      cfg.TDX.BaseURL,
		ClientID:     cfg.TDX.ClientID,
		ClientSecret: cfg.TDX.ClientSecret,
		Timeout:      cfg.TDX.Timeout,
	})
	conn := netcheck.New(cfg.RailWeb.ProbeAddr, 3*time.Second)
	tokens := usecases.NewTokenService(api, memory.NewPreferences(), clock)
	catalog := usecases.NewCatalogService(api, tokens, memory.NewStations(), memory.NewLines(), nil, conn)
	schedules := usecases.NewScheduleService(api, tokens, catalog, conn)
	tracker := usecases.NewTrackerService(api, tokens, clock, publisher, usecases.TrackerConfig{
		MinInterval: cfg.Tracker.MinInterval,
		MaxInterval: cfg.Tracker.MaxInterval,
		Freshness:   cfg.Tracker.Freshness,
	})

	// Stop names come from the timetable record when the catalog is empty.
	path := domain.Path{
		DepartureStation: domain.Station{ID: *from},
		ArrivalStation:   domain.Station{ID: *to},
	}
	r := schedules.ResolveSchedule(ctx, trainNo, queryDate, path)
	switch r.Status() {
	case domain.StatusSuccess:
	case domain.StatusFail:
		log.Fatalf("train %s: %s", trainNo, r.Message())
	default:
		log.Fatalf("train %s: %v", trainNo, r.Err())
	}
	schedule := r.Data()

	out := newPrinter(os.Stdout, *asJSON, schedule)
	out.schedule()
	for state := range tracker.Track(ctx, schedule) {
		out.state(state)
	}
	slog.Debug("tracking stopped", "train", trainNo)
}

type printer struct {
	w     io.Writer
	json  bool
	enc   *json.Encoder
	sched domain.TrainSchedule
}

func newPrinter(w io.Writer, asJSON bool, sched domain.TrainSchedule) *printer {
	return &printer{w: w, json: asJSON, enc: json.NewEncoder(w), sched: sched}
}

func (p *printer) schedule() {
	if p.json {
		_ = p.enc.Encode(map[string]any{"type": "schedule", "data": p.sched})
		return
	}
	name := p.sched.Train.Type.Name()
	fmt.Fprintf(p.w, "%s %s (%s)\n", p.sched.Train.Number, name.Zh, name.En)
	for i, st := range p.sched.Stops {
		fmt.Fprintf(p.w, "  %2d  %s  %s-%s\n", i, stationLabel(st.Station),
			st.ArrivalTime.Format("01-02 15:04"), st.DepartureTime.Format("15:04"))
	}
}

func (p *printer) state(s domain.TrackingState) {
	if p.json {
		_ = p.enc.Encode(map[string]any{"type": "state", "data": s})
		return
	}
	at := "-"
	if s.TrainIndex >= 0 && s.TrainIndex < len(p.sched.Stops) {
		at = stationLabel(p.sched.Stops[s.TrainIndex].Station)
	}
	fmt.Fprintf(p.w, "%s  %-8s delay=%dm  at=%s\n", s.UpdatedAt.Format("15:04:05"), s.Status, s.Delay, at)
}

func stationLabel(s domain.Station) string {
	if s.Name.Zh != "" {
		return s.Name.Zh
	}
	return s.ID
}
