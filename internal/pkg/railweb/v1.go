package railweb

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

// ParseV1 reads the layout where each itinerary is a ".detail-box-td" block with
// one ".detail-column" per leg.
func ParseV1(doc *goquery.Document, stations []domain.Station, date time.Time, path domain.Path) []domain.Trip {
	blocks := uniqueBlocks(doc.Find(".detail-box-td"), func(s *goquery.Selection) string {
		return strings.TrimSpace(s.Find(".detail-column").First().Find(".time").First().Text())
	})
	return collectTrips("v1", blocks, func(block *goquery.Selection) (domain.Trip, error) {
		return parseV1Block(block, stations, date, path)
	})
}

type v1Leg struct {
	train            domain.Train
	path             domain.Path
	depText, arrText string
}

func parseV1Block(block *goquery.Selection, stations []domain.Station, date time.Time, path domain.Path) (domain.Trip, error) {
	var legs []v1Leg
	var legErr error
	block.Find(".detail-column").EachWithBreak(func(i int, col *goquery.Selection) bool {
		leg, err := parseV1Leg(col, stations)
		if err != nil {
			legErr = fmt.Errorf("leg %d: %w", i, err)
			return false
		}
		legs = append(legs, leg)
		return true
	})
	if legErr != nil {
		return domain.Trip{}, legErr
	}
	if len(legs) == 0 {
		return domain.Trip{}, fmt.Errorf("block has no legs")
	}

	start, end, err := tripSpan(date, legs[0].depText, legs[len(legs)-1].arrText)
	if err != nil {
		return domain.Trip{}, err
	}

	schedules := make([]domain.TrainSchedule, 0, len(legs))
	cursor := start
	for _, leg := range legs {
		dep, err := clockAfter(cursor, leg.depText)
		if err != nil {
			return domain.Trip{}, err
		}
		arr, err := clockAfter(dep, leg.arrText)
		if err != nil {
			return domain.Trip{}, err
		}
		cursor = arr
		schedules = append(schedules, domain.TrainSchedule{
			Path:  leg.path,
			Train: leg.train,
			Stops: []domain.Stop{
				{Station: leg.path.DepartureStation, ArrivalTime: dep, DepartureTime: dep},
				{Station: leg.path.ArrivalStation, ArrivalTime: arr, DepartureTime: arr},
			},
		})
	}

	return domain.Trip{
		Path:           path,
		StartTime:      start,
		EndTime:        end,
		TrainSchedules: schedules,
	}, nil
}

func parseV1Leg(col *goquery.Selection, stations []domain.Station) (v1Leg, error) {
	train, err := parseTrainLabel(col.Find(".train-type a.links").Text())
	if err != nil {
		return v1Leg{}, err
	}
	times := col.Find(".time")
	if times.Length() == 0 {
		return v1Leg{}, fmt.Errorf("no times")
	}
	locations := col.Find(".location")
	if locations.Length() < 4 {
		return v1Leg{}, fmt.Errorf("expected 4 locations, got %d", locations.Length())
	}
	p, err := findPath(stations, locations.Eq(2).Text(), locations.Eq(3).Text())
	if err != nil {
		return v1Leg{}, err
	}
	return v1Leg{
		train:   train,
		path:    p,
		depText: strings.TrimSpace(times.First().Text()),
		arrText: strings.TrimSpace(times.Last().Text()),
	}, nil
}

// clockAfter places a clock text on the first day not before ref.
func clockAfter(ref time.Time, clock string) (time.Time, error) {
	t, err := domain.ParseClock(ref, clock)
	if err != nil {
		return time.Time{}, err
	}
	if t.Before(ref) {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}
