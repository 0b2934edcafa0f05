package railweb

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

// ParseV2 reads the layout where each itinerary is a ".bk_3_list.columns" row.
// This layout carries no per-leg times, so legs are returned without stops.
func ParseV2(doc *goquery.Document, stations []domain.Station, date time.Time, path domain.Path) []domain.Trip {
	blocks := uniqueBlocks(doc.Find(".bk_3_list.columns"), func(s *goquery.Selection) string {
		return strings.TrimSpace(s.Find(".ts_3_trans1 .bk_3bg2").First().Text())
	})
	return collectTrips("v2", blocks, func(block *goquery.Selection) (domain.Trip, error) {
		return parseV2Block(block, stations, date, path)
	})
}

func parseV2Block(block *goquery.Selection, stations []domain.Station, date time.Time, path domain.Path) (domain.Trip, error) {
	depText := strings.TrimSpace(block.Find(".ts_3_trans1 .bk_3bg2").First().Text())
	if depText == "" {
		return domain.Trip{}, fmt.Errorf("missing departure time")
	}
	arrText := strings.TrimSpace(block.Find(".ts_3_trans1 ~ .ts_3_trans1 .bk_3bg2").Text())

	var labels []string
	block.Find(".ts_1_trans1 .icon-train a.links").Each(func(_ int, s *goquery.Selection) {
		labels = append(labels, s.Text())
	})
	if len(labels) == 0 {
		return domain.Trip{}, fmt.Errorf("no trains")
	}

	var legPaths []string
	block.Find(".m100_x35 .bk_3bg2").Each(func(_ int, s *goquery.Selection) {
		legPaths = append(legPaths, stripClock(s.Find(".pl-1").Last().Text()))
	})

	start, end, err := tripSpan(date, depText, arrText)
	if err != nil {
		return domain.Trip{}, err
	}

	schedules := make([]domain.TrainSchedule, 0, len(labels))
	for i, label := range labels {
		if i >= len(legPaths) {
			return domain.Trip{}, fmt.Errorf("leg %d: no stations", i)
		}
		names := strings.Fields(legPaths[i])
		if len(names) == 0 {
			return domain.Trip{}, fmt.Errorf("leg %d: empty stations", i)
		}
		p, err := findPath(stations, names[0], names[len(names)-1])
		if err != nil {
			return domain.Trip{}, fmt.Errorf("leg %d: %w", i, err)
		}
		train, err := parseTrainLabel(label)
		if err != nil {
			return domain.Trip{}, fmt.Errorf("leg %d: %w", i, err)
		}
		schedules = append(schedules, domain.TrainSchedule{Path: p, Train: train})
	}

	return domain.Trip{
		Path:           path,
		StartTime:      start,
		EndTime:        end,
		TrainSchedules: schedules,
	}, nil
}

// stripClock drops digits and colons, leaving the station names.
func stripClock(s string) string {
	return keep(s, func(r rune) bool { return !unicode.IsDigit(r) && r != ':' })
}
