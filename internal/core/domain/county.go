package domain

import "strings"

var counties = []Name{
	{En: "Keelung City", Zh: "基隆市"},
	{En: "Taipei City", Zh: "臺北市"},
	{En: "New Taipei City", Zh: "新北市"},
	{En: "Taoyuan City", Zh: "桃園市"},
	{En: "Hsinchu City", Zh: "新竹市"},
	{En: "Hsinchu County", Zh: "新竹縣"},
	{En: "Miaoli County", Zh: "苗栗縣"},
	{En: "Taichung City", Zh: "臺中市"},
	{En: "Changhua County", Zh: "彰化縣"},
	{En: "Nantou County", Zh: "南投縣"},
	{En: "Yunlin County", Zh: "雲林縣"},
	{En: "Chiayi City", Zh: "嘉義市"},
	{En: "Chiayi County", Zh: "嘉義縣"},
	{En: "Tainan City", Zh: "臺南市"},
	{En: "Kaohsiung City", Zh: "高雄市"},
	{En: "Pingtung County", Zh: "屏東縣"},
	{En: "Taitung County", Zh: "臺東縣"},
	{En: "Hualien County", Zh: "花蓮縣"},
	{En: "Yilan County", Zh: "宜蘭縣"},
}

// Counties returns the known counties in north-to-south order.
func Counties() []Name {
	out := make([]Name, len(counties))
	copy(out, counties)
	return out
}

// CountyFromAddress finds the county named earliest in a station address.
// Addresses sometimes use 台 for 臺. Unknown addresses yield an empty Name.
func CountyFromAddress(address string) Name {
	addr := strings.ReplaceAll(address, "台", "臺")
	best, bestAt := Name{}, -1
	for _, c := range counties {
		if i := strings.Index(addr, c.Zh); i >= 0 && (bestAt == -1 || i < bestAt) {
			best, bestAt = c, i
		}
	}
	return best
}

// CountyStations is one county group of the catalog.
type CountyStations struct {
	County   Name      `json:"county"`
	Stations []Station `json:"stations"`
}

// GroupByCounty groups stations by county in first-seen order, skipping stations
// without a county.
func GroupByCounty(stations []Station) []CountyStations {
	var groups []CountyStations
	index := make(map[Name]int)
	for _, s := range stations {
		if s.County.IsEmpty() {
			continue
		}
		i, ok := index[s.County]
		if !ok {
			i = len(groups)
			index[s.County] = i
			groups = append(groups, CountyStations{County: s.County})
		}
		groups[i].Stations = append(groups[i].Stations, s)
	}
	return groups
}
