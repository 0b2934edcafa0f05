package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/trainschedule/internal/core/domain"
	"github.com/samirrijal/trainschedule/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	nameType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Name",
		Fields: graphql.Fields{
			"en": &graphql.Field{Type: graphql.String},
			"zh": &graphql.Field{Type: graphql.String},
		},
	})

	stationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Station",
		Fields: graphql.Fields{
			"id":     &graphql.Field{Type: graphql.String},
			"name":   &graphql.Field{Type: nameType},
			"county": &graphql.Field{Type: nameType},
		},
	})

	countyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "County",
		Fields: graphql.Fields{
			"county":   &graphql.Field{Type: nameType},
			"stations": &graphql.Field{Type: graphql.NewList(stationType)},
		},
	})

	lineType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Line",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: nameType},
			"stations": &graphql.Field{Type: graphql.NewList(stationType)},
		},
	})

	stopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stop",
		Fields: graphql.Fields{
			"station":        &graphql.Field{Type: stationType},
			"arrival_time":   &graphql.Field{Type: graphql.String},
			"departure_time": &graphql.Field{Type: graphql.String},
		},
	})

	trainType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Train",
		Fields: graphql.Fields{
			"number":    &graphql.Field{Type: graphql.String},
			"type":      &graphql.Field{Type: graphql.String},
			"type_name": &graphql.Field{Type: nameType},
		},
	})

	scheduleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TrainSchedule",
		Fields: graphql.Fields{
			"train":      &graphql.Field{Type: trainType},
			"price":      &graphql.Field{Type: graphql.Int},
			"start_time": &graphql.Field{Type: graphql.String},
			"end_time":   &graphql.Field{Type: graphql.String},
			"stops":      &graphql.Field{Type: graphql.NewList(stopType)},
		},
	})

	tripType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Trip",
		Fields: graphql.Fields{
			"start_time":       &graphql.Field{Type: graphql.String},
			"end_time":         &graphql.Field{Type: graphql.String},
			"transfers":        &graphql.Field{Type: graphql.Int},
			"duration_minutes": &graphql.Field{Type: graphql.Int},
			"schedules":        &graphql.Field{Type: graphql.NewList(scheduleType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"stations": &graphql.Field{
				Type:        graphql.NewList(stationType),
				Description: "The station catalog ordered by id",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					stations, err := deps.Catalog.AllStations(p.Context)
					if err != nil {
						return nil, err
					}
					return stationsToGQL(stations), nil
				},
			},
			"station": &graphql.Field{
				Type:        stationType,
				Description: "Get a station by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					s, err := deps.Catalog.StationByID(p.Context, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return stationToGQL(*s), nil
				},
			},
			"counties": &graphql.Field{
				Type:        graphql.NewList(countyType),
				Description: "Stations grouped by county",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					groups, err := deps.Catalog.StationsByCounty(p.Context)
					if err != nil {
						return nil, err
					}
					out := make([]map[string]interface{}, 0, len(groups))
					for _, g := range groups {
						out = append(out, map[string]interface{}{
							"county":   nameToGQL(g.County),
							"stations": stationsToGQL(g.Stations),
						})
					}
					return out, nil
				},
			},
			"lines": &graphql.Field{
				Type:        graphql.NewList(lineType),
				Description: "Rail lines with their stations",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lines, err := deps.Catalog.Lines(p.Context)
					if err != nil {
						return nil, err
					}
					out := make([]map[string]interface{}, 0, len(lines))
					for _, l := range lines {
						out = append(out, map[string]interface{}{
							"id":       l.ID,
							"name":     nameToGQL(l.Name),
							"stations": stationsToGQL(l.Stations),
						})
					}
					return out, nil
				},
			},
			"trips": &graphql.Field{
				Type:        graphql.NewList(tripType),
				Description: "Trips between two stations on a date",
				Args: graphql.FieldConfigArgument{
					"from":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"to":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"date":     &graphql.ArgumentConfig{Type: graphql.String},
					"transfer": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
					"types":    &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					path, err := gqlPath(p, deps)
					if err != nil {
						return nil, err
					}
					date, err := gqlDate(p, deps)
					if err != nil {
						return nil, err
					}
					var codes []domain.TrainTypeCode
					if raw, ok := p.Args["types"].([]interface{}); ok {
						for _, v := range raw {
							code, err := domain.ParseTrainTypeCode(fmt.Sprint(v))
							if err != nil {
								return nil, err
							}
							codes = append(codes, code)
						}
					}
					r := deps.Trips.Search(p.Context, usecases.TripQuery{
						Path:        path,
						Date:        date,
						CanTransfer: p.Args["transfer"].(bool),
						TrainTypes:  codes,
					})
					if err := resultErr(r); err != nil {
						return nil, err
					}
					out := make([]map[string]interface{}, 0, len(r.Data()))
					for _, t := range r.Data() {
						out = append(out, tripToGQL(t))
					}
					return out, nil
				},
			},
			"schedule": &graphql.Field{
				Type:        scheduleType,
				Description: "The dated schedule of one train",
				Args: graphql.FieldConfigArgument{
					"number": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"from":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"to":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"date":   &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					path, err := gqlPath(p, deps)
					if err != nil {
						return nil, err
					}
					date, err := gqlDate(p, deps)
					if err != nil {
						return nil, err
					}
					r := deps.Schedules.ResolveSchedule(p.Context, p.Args["number"].(string), date, path)
					if err := resultErr(r); err != nil {
						return nil, err
					}
					return scheduleToGQL(r.Data()), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}

func resultErr[T any](r domain.Result[T]) error {
	switch {
	case r.IsSuccess():
		return nil
	case r.IsFail():
		return errors.New(r.Message())
	case r.IsError():
		return r.Err()
	default:
		return errors.New("pending")
	}
}

func gqlPath(p graphql.ResolveParams, deps *Dependencies) (domain.Path, error) {
	from, _ := p.Args["from"].(string)
	to, _ := p.Args["to"].(string)
	dep, err := deps.Catalog.StationByID(p.Context, from)
	if err != nil {
		return domain.Path{}, err
	}
	arr, err := deps.Catalog.StationByID(p.Context, to)
	if err != nil {
		return domain.Path{}, err
	}
	return domain.Path{DepartureStation: *dep, ArrivalStation: *arr}, nil
}

func gqlDate(p graphql.ResolveParams, deps *Dependencies) (time.Time, error) {
	raw, _ := p.Args["date"].(string)
	if raw == "" {
		return domain.Day(deps.now().In(domain.Taipei)), nil
	}
	t, err := time.ParseInLocation(domain.DateLayout, raw, domain.Taipei)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD")
	}
	return t, nil
}

func nameToGQL(n domain.Name) map[string]interface{} {
	return map[string]interface{}{"en": n.En, "zh": n.Zh}
}

func stationToGQL(s domain.Station) map[string]interface{} {
	return map[string]interface{}{
		"id":     s.ID,
		"name":   nameToGQL(s.Name),
		"county": nameToGQL(s.County),
	}
}

func stationsToGQL(stations []domain.Station) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(stations))
	for _, s := range stations {
		out = append(out, stationToGQL(s))
	}
	return out
}

func scheduleToGQL(s domain.TrainSchedule) map[string]interface{} {
	stops := make([]map[string]interface{}, 0, len(s.Stops))
	for _, st := range s.Stops {
		stops = append(stops, map[string]interface{}{
			"station":        stationToGQL(st.Station),
			"arrival_time":   st.ArrivalTime.Format(time.RFC3339),
			"departure_time": st.DepartureTime.Format(time.RFC3339),
		})
	}
	m := map[string]interface{}{
		"train": map[string]interface{}{
			"number":    s.Train.Number,
			"type":      s.Train.Type.String(),
			"type_name": nameToGQL(s.Train.Type.Name()),
		},
		"price": s.Price,
		"stops": stops,
	}
	if len(s.Stops) > 0 {
		m["start_time"] = s.StartTime().Format(time.RFC3339)
		m["end_time"] = s.EndTime().Format(time.RFC3339)
	}
	return m
}

func tripToGQL(t domain.Trip) map[string]interface{} {
	schedules := make([]map[string]interface{}, 0, len(t.TrainSchedules))
	for _, s := range t.TrainSchedules {
		schedules = append(schedules, scheduleToGQL(s))
	}
	return map[string]interface{}{
		"start_time":       t.StartTime.Format(time.RFC3339),
		"end_time":         t.EndTime.Format(time.RFC3339),
		"transfers":        t.Transfers(),
		"duration_minutes": int(t.Duration().Minutes()),
		"schedules":        schedules,
	}
}
