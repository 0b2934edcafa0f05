// Package railweb reads the railway's public timetable search page. The page
// layout is not a published contract, so each known layout has its own parser.
package railweb

import (
	"net/url"
	"strings"
	"time"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

// DefaultBaseURL is the timetable search endpoint.
const DefaultBaseURL = "https://tip.railway.gov.tw/tra-tip-web/tip/tip001/tip112/querybytime"

// RideDateLayout is the date format the search page expects.
const RideDateLayout = "2006/01/02"

// SearchURL builds the transfer-enabled search for a path on date. The query string
// is assembled by hand because the site is sensitive to parameter order.
func SearchURL(base string, date time.Time, path domain.Path) string {
	if base == "" {
		base = DefaultBaseURL
	}
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("?startTime=00:00&endTime=23:59&transfer=NORMAL&trainTypeList=ALL&rideDate=")
	b.WriteString(date.Format(RideDateLayout))
	b.WriteString("&endStation=")
	b.WriteString(stationParam(path.ArrivalStation))
	b.WriteString("&startStation=")
	b.WriteString(stationParam(path.DepartureStation))
	b.WriteString("&sort=travelTime,asc")
	return b.String()
}

func stationParam(s domain.Station) string {
	return s.ID + "-" + url.QueryEscape(s.Name.Zh)
}
