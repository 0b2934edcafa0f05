package railweb

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

// Parser extracts trips from one page layout.
type Parser func(doc *goquery.Document, stations []domain.Station, date time.Time, path domain.Path) []domain.Trip

// Parsers lists the known layouts, primary first.
var Parsers = []struct {
	Name  string
	Parse Parser
}{
	{"v1", ParseV1},
	{"v2", ParseV2},
}

// uniqueBlocks keeps the first block for each key.
func uniqueBlocks(sel *goquery.Selection, key func(*goquery.Selection) string) []*goquery.Selection {
	seen := make(map[string]bool)
	var out []*goquery.Selection
	sel.Each(func(_ int, s *goquery.Selection) {
		k := key(s)
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, s)
	})
	return out
}

// collectTrips runs build over each block, logging and dropping the ones that fail.
func collectTrips(layout string, blocks []*goquery.Selection, build func(*goquery.Selection) (domain.Trip, error)) []domain.Trip {
	trips := make([]domain.Trip, 0, len(blocks))
	for i, b := range blocks {
		trip, err := build(b)
		if err != nil {
			slog.Warn("skip unparsable trip", "layout", layout, "block", i, "error", err)
			continue
		}
		trips = append(trips, trip)
	}
	domain.SortTrips(trips)
	return trips
}

func findStation(stations []domain.Station, zh string) (domain.Station, error) {
	zh = strings.TrimSpace(zh)
	for _, s := range stations {
		if s.Name.Zh == zh {
			return s, nil
		}
	}
	return domain.Station{}, fmt.Errorf("%w: %q", domain.ErrStationNotFound, zh)
}

func findPath(stations []domain.Station, depZh, arrZh string) (domain.Path, error) {
	dep, err := findStation(stations, depZh)
	if err != nil {
		return domain.Path{}, err
	}
	arr, err := findStation(stations, arrZh)
	if err != nil {
		return domain.Path{}, err
	}
	return domain.Path{DepartureStation: dep, ArrivalStation: arr}, nil
}

// parseTrainLabel splits a label such as "自強(3000) 123" into number and type.
// The number is the digits after the last ")"; the type is the label without digits.
func parseTrainLabel(label string) (domain.Train, error) {
	label = strings.TrimSpace(label)
	tail := label
	if i := strings.LastIndex(label, ")"); i >= 0 {
		tail = label[i+1:]
	}
	number := keep(tail, unicode.IsDigit)
	if number == "" {
		return domain.Train{}, fmt.Errorf("no train number in %q", label)
	}
	typeText := strings.TrimSpace(keep(label, func(r rune) bool { return !unicode.IsDigit(r) }))
	return domain.Train{Number: number, Type: domain.TrainTypeFromZh(typeText)}, nil
}

func keep(s string, pred func(rune) bool) string {
	return strings.Map(func(r rune) rune {
		if pred(r) {
			return r
		}
		return -1
	}, s)
}

// tripSpan turns departure/arrival clock texts into times on date. When the arrival
// text sorts before the departure text the trip arrives the next day.
func tripSpan(date time.Time, depText, arrText string) (time.Time, time.Time, error) {
	depText, arrText = strings.TrimSpace(depText), strings.TrimSpace(arrText)
	start, err := domain.ParseClock(date, depText)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := domain.ParseClock(date, arrText)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if arrText < depText {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}
