package domain

import (
	"time"
)

// Name is a bilingual label. It doubles as a lookup key, so it must stay comparable.
type Name struct {
	En string `json:"en"`
	Zh string `json:"zh"`
}

// IsEmpty reports whether both translations are blank.
func (n Name) IsEmpty() bool {
	return n.En == "" && n.Zh == ""
}

// Station is a railway station from the catalog.
type Station struct {
	ID     string `json:"id"`
	Name   Name   `json:"name"`
	County Name   `json:"county"`
}

// Line is a rail line with its stations in line order.
type Line struct {
	ID       string    `json:"id"`
	Name     Name      `json:"name"`
	Stations []Station `json:"stations"`
}

// Path is a directed station pair. Identity is the ordered pair of station IDs.
type Path struct {
	DepartureStation Station `json:"departure_station"`
	ArrivalStation   Station `json:"arrival_station"`
}

// ID returns the ordered id pair, e.g. "1000-1210".
func (p Path) ID() string {
	return p.DepartureStation.ID + "-" + p.ArrivalStation.ID
}

// Reverse swaps departure and arrival.
func (p Path) Reverse() Path {
	return Path{DepartureStation: p.ArrivalStation, ArrivalStation: p.DepartureStation}
}

// SameAs compares paths by station identity only.
func (p Path) SameAs(other Path) bool {
	return p.ID() == other.ID()
}

// DefaultPath is used when no path has been saved yet.
func DefaultPath() Path {
	return Path{
		DepartureStation: Station{
			ID:     "1000",
			Name:   Name{En: "Taipei", Zh: "臺北"},
			County: Name{En: "Taipei City", Zh: "臺北市"},
		},
		ArrivalStation: Station{
			ID:     "1210",
			Name:   Name{En: "Hsinchu", Zh: "新竹"},
			County: Name{En: "Hsinchu City", Zh: "新竹市"},
		},
	}
}

// Train identifies a train service.
type Train struct {
	Number string    `json:"number"`
	Type   TrainType `json:"type"`
}

// IsTour reports whether the number belongs to the tour trains, which carry no regular type.
func (t Train) IsTour() bool {
	return t.Number == "1" || t.Number == "2"
}

// Stop is one element of a schedule's stop sequence.
type Stop struct {
	Station       Station   `json:"station"`
	ArrivalTime   time.Time `json:"arrival_time"`
	DepartureTime time.Time `json:"departure_time"`
}

// TrainSchedule is one train's run over a path. Stops keep itinerary order.
type TrainSchedule struct {
	Path  Path   `json:"path"`
	Train Train  `json:"train"`
	Price int    `json:"price"`
	Stops []Stop `json:"stops"`
}

// StartTime is the first stop's departure, or the zero time when unresolved.
func (s TrainSchedule) StartTime() time.Time {
	if len(s.Stops) == 0 {
		return time.Time{}
	}
	return s.Stops[0].DepartureTime
}

// EndTime is the last stop's arrival, or the zero time when unresolved.
func (s TrainSchedule) EndTime() time.Time {
	if len(s.Stops) == 0 {
		return time.Time{}
	}
	return s.Stops[len(s.Stops)-1].ArrivalTime
}

// StopIndex returns the position of stationID in the stop sequence, or -1.
func (s TrainSchedule) StopIndex(stationID string) int {
	for i, st := range s.Stops {
		if st.Station.ID == stationID {
			return i
		}
	}
	return -1
}

// Trip is a complete itinerary, one schedule per train used.
type Trip struct {
	Path           Path            `json:"path"`
	StartTime      time.Time       `json:"start_time"`
	EndTime        time.Time       `json:"end_time"`
	TrainSchedules []TrainSchedule `json:"train_schedules"`
}

// NewDirectTrip wraps a single resolved schedule as a trip.
func NewDirectTrip(path Path, schedule TrainSchedule) Trip {
	return Trip{
		Path:           path,
		StartTime:      schedule.StartTime(),
		EndTime:        schedule.EndTime(),
		TrainSchedules: []TrainSchedule{schedule},
	}
}

// Transfers is the number of train changes.
func (t Trip) Transfers() int {
	if len(t.TrainSchedules) == 0 {
		return 0
	}
	return len(t.TrainSchedules) - 1
}

// Duration is the door-to-door travel time.
func (t Trip) Duration() time.Duration {
	return t.EndTime.Sub(t.StartTime)
}

// StationLiveBoard is one live-board row. Only meaningful within the freshness window.
type StationLiveBoard struct {
	StationID  string    `json:"station_id"`
	TrainNo    string    `json:"train_no"`
	Delay      int       `json:"delay"` // minutes
	UpdateTime time.Time `json:"update_time"`
}

// Token is the persisted access token with its refresh deadline in epoch millis.
type Token struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Expired reports whether the token must be refreshed at now.
func (t Token) Expired(now time.Time) bool {
	return now.UnixMilli() >= t.ExpiresAt
}

// TokenGrant is the token endpoint response. ExpiresIn is in seconds.
type TokenGrant struct {
	AccessToken string
	ExpiresIn   int64
}

// Fare is one ticket price for an O-D pair.
type Fare struct {
	TicketType int `json:"ticket_type"`
	FareClass  int `json:"fare_class"`
	Price      int `json:"price"`
}

// ODFare groups the fares of one train type between two stations.
type ODFare struct {
	Direction int    `json:"direction"`
	TrainType int    `json:"train_type"`
	Fares     []Fare `json:"fares"`
}

const (
	ticketTypeOneWay = 1
	fareClassAdult   = 1
)

// AdultFare returns the adult one-way price for the given train type, or 0.
func AdultFare(fares []ODFare, t TrainType) int {
	want := t.FareCategory()
	for _, f := range fares {
		if f.TrainType != want {
			continue
		}
		for _, p := range f.Fares {
			if p.TicketType == ticketTypeOneWay && p.FareClass == fareClassAdult {
				return p.Price
			}
		}
	}
	return 0
}

// TrackingState is one observation emitted by the live-board tracker.
type TrackingState struct {
	SessionID  string             `json:"session_id,omitempty"`
	TrainNo    string             `json:"train_no"`
	Status     RunningStatus      `json:"status"`
	Delay      int                `json:"delay"`
	TrainIndex int                `json:"train_index"`
	LiveBoards []StationLiveBoard `json:"live_boards,omitempty"`
	UpdatedAt  time.Time          `json:"updated_at"`
}
