package http

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/trainschedule/internal/core/domain"
	"github.com/samirrijal/trainschedule/internal/core/usecases"
)

// ListStationsHandler returns the station catalog ordered by id, or the single
// station matching ?name=.
func ListStationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if name := strings.TrimSpace(c.Query("name")); name != "" {
			s, err := deps.Catalog.StationByName(c.UserContext(), name)
			if err != nil {
				return errFrom(c, err)
			}
			return c.JSON([]domain.Station{*s})
		}

		stations, err := deps.Catalog.AllStations(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		page, pg := paginate(c, stations, 500)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// GetStationHandler returns one station.
func GetStationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := deps.Catalog.StationByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(s)
	}
}

// CountiesHandler returns stations grouped by county.
func CountiesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		groups, err := deps.Catalog.StationsByCounty(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		if groups == nil {
			groups = []domain.CountyStations{}
		}
		return c.JSON(groups)
	}
}

// ListLinesHandler returns every line with its stations.
func ListLinesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lines, err := deps.Catalog.Lines(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		if lines == nil {
			lines = []domain.Line{}
		}
		return c.JSON(lines)
	}
}

// LineStationsHandler returns a line's stations in line order.
func LineStationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stations, err := deps.Catalog.StationsOfLine(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(stations)
	}
}

// RefreshCatalogHandler downloads the catalog from the remote API.
func RefreshCatalogHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return respondWith(c, deps.Catalog.Refresh(c.UserContext()), func(bool) any {
			return fiber.Map{"status": "refreshed"}
		})
	}
}

// TripsResponse is a trip search answer with the trip to focus first.
type TripsResponse struct {
	Path         domain.Path   `json:"path"`
	Date         string        `json:"date"`
	Trips        []domain.Trip `json:"trips"`
	InitialIndex int           `json:"initial_index"`
}

// SearchTripsHandler searches direct or transfer trips.
//
// Query: from, to (station ids; default saved path), date (YYYY-MM-DD),
// transfer (bool), types (comma-separated groups), at (HH:MM), mode
// (departure|arrival).
func SearchTripsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		path, err := resolvePath(c, deps)
		if err != nil {
			return pathError(c, err)
		}
		date, err := queryDate(c, deps)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		codes, err := parseTypeCodes(c.Query("types"))
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		mode := domain.SelectDeparture
		switch c.Query("mode", "departure") {
		case "departure":
		case "arrival":
			mode = domain.SelectArrival
		default:
			return errBadRequest(c, "mode must be departure or arrival")
		}
		focus := deps.now()
		if at := c.Query("at"); at != "" {
			if focus, err = domain.ParseClock(date, at); err != nil {
				return errBadRequest(c, "at must be HH:MM")
			}
		}

		r := deps.Trips.Search(ctx, usecases.TripQuery{
			Path:        path,
			Date:        date,
			CanTransfer: c.QueryBool("transfer", false),
			TrainTypes:  codes,
		})
		return respondWith(c, r, func(trips []domain.Trip) any {
			return TripsResponse{
				Path:         path,
				Date:         date.Format(domain.DateLayout),
				Trips:        trips,
				InitialIndex: domain.InitialTripIndex(trips, focus, mode),
			}
		})
	}
}

// TimetablesHandler returns the raw direct timetable rows.
func TimetablesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path, err := resolvePath(c, deps)
		if err != nil {
			return pathError(c, err)
		}
		date, err := queryDate(c, deps)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return respond(c, deps.Timetables.FetchTimetables(c.UserContext(), path, date))
	}
}

// FaresHandler returns the fares between two stations.
func FaresHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path, err := resolvePath(c, deps)
		if err != nil {
			return pathError(c, err)
		}
		fares := deps.Timetables.FetchFares(c.UserContext(), path)
		if fares == nil {
			fares = []domain.ODFare{}
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(fares)
	}
}

// TrainScheduleHandler resolves a train number to a dated schedule.
func TrainScheduleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path, err := resolvePath(c, deps)
		if err != nil {
			return pathError(c, err)
		}
		date, err := queryDate(c, deps)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return respond(c, deps.Schedules.ResolveSchedule(c.UserContext(), c.Params("number"), date, path))
	}
}

// LiveBoardResponse is the fresh live-board view of one train.
type LiveBoardResponse struct {
	TrainNo    string                    `json:"train_no"`
	Delay      *int                      `json:"delay"`
	LiveBoards []domain.StationLiveBoard `json:"live_boards"`
}

// TrainLiveBoardHandler returns the fresh live-board rows of a train.
func TrainLiveBoardHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		number := c.Params("number")
		boards := deps.Tracker.FetchLiveBoardOfTrain(c.UserContext(), number)
		resp := LiveBoardResponse{TrainNo: number, LiveBoards: boards}
		if len(boards) > 0 {
			d := boards[0].Delay
			resp.Delay = &d
		}
		c.Set("Cache-Control", "no-cache")
		return c.JSON(resp)
	}
}

// GetCurrentPathHandler returns the saved search path.
func GetCurrentPathHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return respond(c, deps.Preferences.CurrentPath(c.UserContext()))
	}
}

type pathRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PutCurrentPathHandler saves the search path from {"from","to"} station ids.
func PutCurrentPathHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path, err := bodyPath(c, deps)
		if err != nil {
			return pathError(c, err)
		}
		return respond(c, deps.Preferences.SaveCurrentPath(c.UserContext(), path))
	}
}

// GetSelectedDateTimeHandler returns the saved search date-time.
func GetSelectedDateTimeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return respondWith(c, deps.Preferences.SelectedDateTime(c.UserContext()), formatDateTime)
	}
}

// PutSelectedDateTimeHandler saves {"date_time":"2006-01-02T15:04:05"} in railway time.
func PutSelectedDateTimeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			DateTime string `json:"date_time"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		t, err := time.ParseInLocation(usecases.DateTimeLayout, req.DateTime, domain.Taipei)
		if err != nil {
			return errBadRequest(c, "date_time must be YYYY-MM-DDTHH:MM:SS")
		}
		return respondWith(c, deps.Preferences.SaveSelectedDateTime(c.UserContext(), t), formatDateTime)
	}
}

func formatDateTime(t time.Time) any {
	return fiber.Map{"date_time": t.Format(usecases.DateTimeLayout)}
}

// ListFavoritesHandler returns the favorite paths.
func ListFavoritesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return respond(c, deps.Preferences.ListPaths(c.UserContext()))
	}
}

// AddFavoriteHandler saves {"from","to"} as a favorite.
func AddFavoriteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path, err := bodyPath(c, deps)
		if err != nil {
			return pathError(c, err)
		}
		r := deps.Preferences.InsertPath(c.UserContext(), path)
		if r.IsSuccess() {
			c.Status(fiber.StatusCreated)
		}
		return respond(c, r)
	}
}

// DeleteFavoriteHandler removes the favorite :from -> :to.
func DeleteFavoriteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := domain.Path{
			DepartureStation: domain.Station{ID: c.Params("from")},
			ArrivalStation:   domain.Station{ID: c.Params("to")},
		}
		r := deps.Preferences.DeletePath(c.UserContext(), path)
		if r.IsSuccess() {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return respond(c, r)
	}
}

// IsFavoriteHandler reports whether :from -> :to is a favorite.
func IsFavoriteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := domain.Path{
			DepartureStation: domain.Station{ID: c.Params("from")},
			ArrivalStation:   domain.Station{ID: c.Params("to")},
		}
		return respondWith(c, deps.Preferences.IsFavorite(c.UserContext(), path), func(ok bool) any {
			return fiber.Map{"favorite": ok}
		})
	}
}

var errPathParams = errors.New("from and to must be given together")

// resolvePath reads ?from=&to= station ids, falling back to the saved path.
func resolvePath(c *fiber.Ctx, deps *Dependencies) (domain.Path, error) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" && to == "" {
		if deps.Preferences == nil {
			return domain.DefaultPath(), nil
		}
		r := deps.Preferences.CurrentPath(c.UserContext())
		if !r.IsSuccess() {
			return domain.DefaultPath(), nil
		}
		return r.Data(), nil
	}
	return lookupPath(c, deps, from, to)
}

func bodyPath(c *fiber.Ctx, deps *Dependencies) (domain.Path, error) {
	var req pathRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.Path{}, fmt.Errorf("%w: invalid request body", errPathParams)
	}
	return lookupPath(c, deps, req.From, req.To)
}

func lookupPath(c *fiber.Ctx, deps *Dependencies, from, to string) (domain.Path, error) {
	if from == "" || to == "" {
		return domain.Path{}, errPathParams
	}
	dep, err := deps.Catalog.StationByID(c.UserContext(), from)
	if err != nil {
		return domain.Path{}, err
	}
	arr, err := deps.Catalog.StationByID(c.UserContext(), to)
	if err != nil {
		return domain.Path{}, err
	}
	return domain.Path{DepartureStation: *dep, ArrivalStation: *arr}, nil
}

func pathError(c *fiber.Ctx, err error) error {
	if errors.Is(err, errPathParams) {
		return errBadRequest(c, err.Error())
	}
	return errFrom(c, err)
}

// queryDate parses ?date=YYYY-MM-DD in railway time, defaulting to today.
func queryDate(c *fiber.Ctx, deps *Dependencies) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return domain.Day(deps.now().In(domain.Taipei)), nil
	}
	t, err := time.ParseInLocation(domain.DateLayout, raw, domain.Taipei)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD")
	}
	return t, nil
}

func parseTypeCodes(raw string) ([]domain.TrainTypeCode, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var codes []domain.TrainTypeCode
	for _, part := range strings.Split(raw, ",") {
		code, err := domain.ParseTrainTypeCode(part)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// paginate applies ?offset=&limit= to a full list.
func paginate[T any](c *fiber.Ctx, items []T, maxLimit int) ([]T, Pagination) {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", maxLimit)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	total := len(items)
	page := []T{}
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		page = items[offset:end]
	}
	return page, Pagination{Offset: offset, Limit: limit, Total: total}
}
