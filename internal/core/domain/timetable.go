package domain

import (
	"fmt"
	"strings"
	"time"
)

// Taipei is the railway's wall-clock zone. Taiwan has no DST, so a fixed offset is exact.
var Taipei = time.FixedZone("Asia/Taipei", 8*60*60)

// DateLayout is the ISO calendar date used by the timetable API.
const DateLayout = "2006-01-02"

// TrainInfo is the header of a raw timetable record.
type TrainInfo struct {
	Number             string `json:"number"`
	TypeName           Name   `json:"type_name"`
	StartingStationID  string `json:"starting_station_id,omitempty"`
	EndingStationID    string `json:"ending_station_id,omitempty"`
	OverNightStationID string `json:"overnight_station_id,omitempty"`
}

// StopTime is one raw stop with wall-clock "HH:MM" times.
type StopTime struct {
	Sequence      int    `json:"sequence"`
	StationID     string `json:"station_id"`
	StationName   Name   `json:"station_name"`
	ArrivalTime   string `json:"arrival_time"`
	DepartureTime string `json:"departure_time"`
}

// TrainTimetable is a raw timetable record as returned by the remote API.
type TrainTimetable struct {
	Info      TrainInfo  `json:"info"`
	StopTimes []StopTime `json:"stop_times"`
}

// StopIndex returns the position of stationID in the stop sequence, or -1.
func (tt TrainTimetable) StopIndex(stationID string) int {
	if stationID == "" {
		return -1
	}
	for i, st := range tt.StopTimes {
		if st.StationID == stationID {
			return i
		}
	}
	return -1
}

// StartsPreviousDay reports whether the run serving departureID began the calendar day before.
// That holds when the day-boundary station comes at or before departureID in the sequence.
func (tt TrainTimetable) StartsPreviousDay(departureID string) bool {
	overnight := tt.StopIndex(tt.Info.OverNightStationID)
	return overnight != -1 && overnight <= tt.StopIndex(departureID)
}

// StationLookup resolves a station id against the catalog.
type StationLookup func(id string) (Station, bool)

// ToTrainSchedule combines the record's clock times with date. Times that go
// backwards along the stop sequence move to the following day.
func (tt TrainTimetable) ToTrainSchedule(date time.Time, path Path, lookup StationLookup) (TrainSchedule, error) {
	stops := make([]Stop, 0, len(tt.StopTimes))
	var prev time.Time
	dayOffset := 0
	for _, st := range tt.StopTimes {
		station := Station{ID: st.StationID, Name: st.StationName}
		if lookup != nil {
			if s, ok := lookup(st.StationID); ok {
				station = s
			}
		}

		arrText, depText := st.ArrivalTime, st.DepartureTime
		if arrText == "" {
			arrText = depText
		}
		if depText == "" {
			depText = arrText
		}

		arr, err := ParseClock(date, arrText)
		if err != nil {
			return TrainSchedule{}, fmt.Errorf("stop %s arrival: %w", st.StationID, err)
		}
		arr = arr.AddDate(0, 0, dayOffset)
		if !prev.IsZero() && arr.Before(prev) {
			dayOffset++
			arr = arr.AddDate(0, 0, 1)
		}

		dep, err := ParseClock(date, depText)
		if err != nil {
			return TrainSchedule{}, fmt.Errorf("stop %s departure: %w", st.StationID, err)
		}
		dep = dep.AddDate(0, 0, dayOffset)
		if dep.Before(arr) {
			dayOffset++
			dep = dep.AddDate(0, 0, 1)
		}
		prev = dep

		stops = append(stops, Stop{Station: station, ArrivalTime: arr, DepartureTime: dep})
	}

	return TrainSchedule{
		Path: path,
		Train: Train{
			Number: tt.Info.Number,
			Type:   TrainTypeFromZh(tt.Info.TypeName.Zh),
		},
		Stops: stops,
	}, nil
}

// ParseClock combines the calendar date of date with an "HH:MM" (or "HH:MM:SS") wall-clock string.
func ParseClock(date time.Time, clock string) (time.Time, error) {
	clock = strings.TrimSpace(clock)
	layout := "15:04"
	if strings.Count(clock, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse clock %q: %w", clock, err)
	}
	y, m, d := date.Date()
	loc := date.Location()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, loc), nil
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
