package tdx

import (
	"sort"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type nameDTO struct {
	ZhTw string `json:"Zh_tw"`
	En   string `json:"En"`
}

func (n nameDTO) toDomain() domain.Name { return domain.Name{En: n.En, Zh: n.ZhTw} }

type stationDTO struct {
	StationID      string  `json:"StationID"`
	StationName    nameDTO `json:"StationName"`
	StationAddress string  `json:"StationAddress"`
}

func (s stationDTO) toDomain() domain.Station {
	return domain.Station{
		ID:     s.StationID,
		Name:   s.StationName.toDomain(),
		County: domain.CountyFromAddress(s.StationAddress),
	}
}

type stationsResponse struct {
	Stations []stationDTO `json:"Stations"`
}

type lineDTO struct {
	LineID     string `json:"LineID"`
	LineNameZh string `json:"LineNameZh"`
	LineNameEn string `json:"LineNameEn"`
}

type linesResponse struct {
	Lines []lineDTO `json:"Lines"`
}

type lineStationDTO struct {
	Sequence    int     `json:"Sequence"`
	StationID   string  `json:"StationID"`
	StationName nameDTO `json:"StationName"`
}

type stationOfLineDTO struct {
	LineID   string           `json:"LineID"`
	Stations []lineStationDTO `json:"Stations"`
}

type stationOfLineResponse struct {
	StationOfLines []stationOfLineDTO `json:"StationOfLines"`
}

// joinLines attaches each line's stations in sequence order. Lines without a
// membership record keep an empty station list.
func joinLines(lines []lineDTO, members []stationOfLineDTO) []domain.Line {
	byLine := make(map[string][]lineStationDTO, len(members))
	for _, m := range members {
		byLine[m.LineID] = append(byLine[m.LineID], m.Stations...)
	}
	out := make([]domain.Line, 0, len(lines))
	for _, l := range lines {
		seq := byLine[l.LineID]
		sort.SliceStable(seq, func(i, j int) bool { return seq[i].Sequence < seq[j].Sequence })
		stations := make([]domain.Station, 0, len(seq))
		for _, s := range seq {
			stations = append(stations, domain.Station{ID: s.StationID, Name: s.StationName.toDomain()})
		}
		out = append(out, domain.Line{
			ID:       l.LineID,
			Name:     domain.Name{En: l.LineNameEn, Zh: l.LineNameZh},
			Stations: stations,
		})
	}
	return out
}

type trainInfoDTO struct {
	TrainNo            string  `json:"TrainNo"`
	TrainTypeName      nameDTO `json:"TrainTypeName"`
	StartingStationID  string  `json:"StartingStationID"`
	EndingStationID    string  `json:"EndingStationID"`
	OverNightStationID string  `json:"OverNightStationID"`
}

type stopTimeDTO struct {
	StopSequence  int     `json:"StopSequence"`
	StationID     string  `json:"StationID"`
	StationName   nameDTO `json:"StationName"`
	ArrivalTime   string  `json:"ArrivalTime"`
	DepartureTime string  `json:"DepartureTime"`
}

type timetableDTO struct {
	TrainInfo trainInfoDTO  `json:"TrainInfo"`
	StopTimes []stopTimeDTO `json:"StopTimes"`
}

type timetablesResponse struct {
	TrainTimetables []timetableDTO `json:"TrainTimetables"`
}

func (r timetablesResponse) toDomain() []domain.TrainTimetable {
	out := make([]domain.TrainTimetable, 0, len(r.TrainTimetables))
	for _, tt := range r.TrainTimetables {
		stops := make([]domain.StopTime, 0, len(tt.StopTimes))
		for _, st := range tt.StopTimes {
			stops = append(stops, domain.StopTime{
				Sequence:      st.StopSequence,
				StationID:     st.StationID,
				StationName:   st.StationName.toDomain(),
				ArrivalTime:   st.ArrivalTime,
				DepartureTime: st.DepartureTime,
			})
		}
		sort.SliceStable(stops, func(i, j int) bool { return stops[i].Sequence < stops[j].Sequence })
		out = append(out, domain.TrainTimetable{
			Info: domain.TrainInfo{
				Number:             tt.TrainInfo.TrainNo,
				TypeName:           tt.TrainInfo.TrainTypeName.toDomain(),
				StartingStationID:  tt.TrainInfo.StartingStationID,
				EndingStationID:    tt.TrainInfo.EndingStationID,
				OverNightStationID: tt.TrainInfo.OverNightStationID,
			},
			StopTimes: stops,
		})
	}
	return out
}

type fareDTO struct {
	TicketType int `json:"TicketType"`
	FareClass  int `json:"FareClass"`
	Price      int `json:"Price"`
}

type odFareDTO struct {
	Direction int       `json:"Direction"`
	TrainType int       `json:"TrainType"`
	Fares     []fareDTO `json:"Fares"`
}

type faresResponse struct {
	ODFares []odFareDTO `json:"ODFares"`
}

type liveBoardDTO struct {
	StationID  string `json:"StationID"`
	TrainNo    string `json:"TrainNo"`
	DelayTime  int    `json:"DelayTime"`
	UpdateTime string `json:"UpdateTime"`
}

type liveBoardsResponse struct {
	StationLiveBoards []liveBoardDTO `json:"StationLiveBoards"`
}
