package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	addressType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Address",
		Fields: graphql.Fields{
			"street": &graphql.Field{Type: graphql.String},
			"city":   &graphql.Field{Type: graphql.String},
			"state":  &graphql.Field{Type: graphql.String},
			"zip":    &graphql.Field{Type: graphql.String},
		},
	})

	locationFields := func() graphql.Fields {
		return graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"type":        &graphql.Field{Type: graphql.String},
			"address":     &graphql.Field{Type: addressType},
			"coordinates": &graphql.Field{Type: geoPointType},
			"incentive_program": &graphql.Field{
				Type: graphql.Boolean,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return locationOf(p.Source).InIncentiveProgram(), nil
				},
			},
			"program_name": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return locationOf(p.Source).IncentiveProgram, nil
				},
			},
		}
	}

	locationType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Location",
		Fields: locationFields(),
	})

	resultFields := locationFields()
	resultFields["distance_miles"] = &graphql.Field{Type: graphql.Float}
	resultFields["trending_score"] = &graphql.Field{Type: graphql.Float}
	resultType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "RankedLocation",
		Fields: resultFields,
	})

	searchType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchResult",
		Fields: graphql.Fields{
			"results":           &graphql.Field{Type: graphql.NewList(resultType)},
			"total_considered":  &graphql.Field{Type: graphql.Int},
			"mode":              &graphql.Field{Type: graphql.String},
			"category":          &graphql.Field{Type: graphql.String},
			"partial":           &graphql.Field{Type: graphql.Boolean},
			"trending_fallback": &graphql.Field{Type: graphql.Boolean},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"searchLocations": &graphql.Field{
				Type:        searchType,
				Description: "Find EBT retailers near a point or at an address",
				Args: graphql.FieldConfigArgument{
					"lat":           &graphql.ArgumentConfig{Type: graphql.Float},
					"lon":           &graphql.ArgumentConfig{Type: graphql.Float},
					"radius":        &graphql.ArgumentConfig{Type: graphql.Float},
					"category":      &graphql.ArgumentConfig{Type: graphql.String},
					"store_types":   &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
					"name_patterns": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
					"city":          &graphql.ArgumentConfig{Type: graphql.String},
					"state":         &graphql.ArgumentConfig{Type: graphql.String},
					"zip":           &graphql.ArgumentConfig{Type: graphql.String},
					"limit":         &graphql.ArgumentConfig{Type: graphql.Int},
					"best_effort":   &graphql.ArgumentConfig{Type: graphql.Boolean},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q, err := searchQueryFromArgs(p.Args)
					if err != nil {
						return nil, err
					}
					resp, err := deps.Search.Search(p.Context, q)
					if err != nil {
						return nil, err
					}
					return searchResultMap(resp), nil
				},
			},
			"location": &graphql.Field{
				Type:        locationType,
				Description: "Get a location by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Locations.GetByID(p.Context, p.Args["id"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func searchQueryFromArgs(args map[string]interface{}) (domain.SearchQuery, error) {
	str := func(k string) string { s, _ := args[k].(string); return s }
	list := func(k string) []string {
		raw, _ := args[k].([]interface{})
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	q := domain.SearchQuery{
		Category:     domain.Category(str("category")),
		StoreTypes:   list("store_types"),
		NamePatterns: list("name_patterns"),
		City:         str("city"),
		State:        str("state"),
		Zip:          str("zip"),
	}
	lat, hasLat := args["lat"].(float64)
	lon, hasLon := args["lon"].(float64)
	if hasLat != hasLon {
		return q, domain.ErrInvalidQuery
	}
	if hasLat {
		q.Origin = &domain.GeoPoint{Lat: lat, Lon: lon}
	}
	if r, ok := args["radius"].(float64); ok {
		if r <= 0 {
			return q, domain.ErrInvalidQuery
		}
		q.RadiusMiles = r
	}
	if n, ok := args["limit"].(int); ok {
		q.ResultLimit = n
	}
	q.BestEffort, _ = args["best_effort"].(bool)
	return q, nil
}

// searchResultMap flattens results so the Location fields resolve by name.
func searchResultMap(resp *domain.SearchResponse) map[string]interface{} {
	results := make([]map[string]interface{}, 0, len(resp.Results))
	for i := range resp.Results {
		r := &resp.Results[i]
		results = append(results, map[string]interface{}{
			"id":             r.Location.ID,
			"name":           r.Location.Name,
			"type":           r.Location.Type,
			"address":        r.Location.Address,
			"coordinates":    r.Location.Coordinates,
			"distance_miles": r.DistanceMiles,
			"trending_score": r.TrendingScore,
			"location":       &r.Location,
		})
	}
	return map[string]interface{}{
		"results":           results,
		"total_considered":  resp.TotalConsidered,
		"mode":              string(resp.Mode),
		"category":          string(resp.Category),
		"partial":           resp.Partial,
		"trending_fallback": resp.TrendingFallback,
	}
}

func locationOf(src interface{}) *domain.Location {
	switch v := src.(type) {
	case *domain.Location:
		return v
	case map[string]interface{}:
		if l, ok := v["location"].(*domain.Location); ok {
			return l
		}
	}
	return &domain.Location{}
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
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
