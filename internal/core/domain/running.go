package domain

import (
	"fmt"
	"sort"
	"time"
)

// RunningStatus is a tracked train's position relative to its timetable.
type RunningStatus int

const (
	StatusNotYet RunningStatus = iota
	StatusRunning
	StatusFinish
)

// RunningLeadWindow is how long before the first departure a train counts as running.
const RunningLeadWindow = time.Hour

func (s RunningStatus) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusFinish:
		return "finish"
	default:
		return "not_yet"
	}
}

// MarshalText encodes the status name.
func (s RunningStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *RunningStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "not_yet":
		*s = StatusNotYet
	case "running":
		*s = StatusRunning
	case "finish":
		*s = StatusFinish
	default:
		return fmt.Errorf("unknown running status %q", b)
	}
	return nil
}

// ComputeRunningStatus classifies now against the schedule, shifting the
// arrival by delay minutes.
func ComputeRunningStatus(schedule TrainSchedule, delay int, now time.Time) RunningStatus {
	if len(schedule.Stops) == 0 {
		return StatusNotYet
	}
	if now.Before(schedule.StartTime().Add(-RunningLeadWindow)) {
		return StatusNotYet
	}
	if now.After(schedule.EndTime().Add(time.Duration(delay) * time.Minute)) {
		return StatusFinish
	}
	return StatusRunning
}

// SelectMode chooses which end of a trip the selected time refers to.
type SelectMode int

const (
	SelectDeparture SelectMode = iota
	SelectArrival
)

// InitialTripIndex picks the trip to focus for a selected time in a list sorted
// by start time. Departure mode picks the first trip leaving at or after at;
// arrival mode picks the last trip arriving before at.
func InitialTripIndex(trips []Trip, at time.Time, mode SelectMode) int {
	if len(trips) == 0 {
		return 0
	}
	last := -1
	for i, t := range trips {
		ref := t.StartTime
		if mode == SelectArrival {
			ref = t.EndTime
		}
		if ref.Before(at) {
			last = i
		}
	}
	idx := last
	if mode == SelectDeparture {
		idx = last + 1
	}
	if idx < 0 {
		idx = 0
	}
	if idx > len(trips)-1 {
		idx = len(trips) - 1
	}
	return idx
}

// FilterByTrainTypes keeps trips whose every leg belongs to one of codes.
// An empty code set keeps everything.
func FilterByTrainTypes(trips []Trip, codes []TrainTypeCode) []Trip {
	if len(codes) == 0 {
		return trips
	}
	allowed := make(map[TrainTypeCode]bool, len(codes))
	for _, c := range codes {
		allowed[c] = true
	}
	out := make([]Trip, 0, len(trips))
	for _, t := range trips {
		ok := true
		for _, s := range t.TrainSchedules {
			if !allowed[s.Train.Type.Code()] {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, t)
		}
	}
	return out
}

// SortTrips orders trips by start time, keeping input order for ties.
func SortTrips(trips []Trip) {
	sort.SliceStable(trips, func(i, j int) bool {
		return trips[i].StartTime.Before(trips[j].StartTime)
	})
}
