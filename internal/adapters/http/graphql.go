package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/streetrisk/internal/core/domain"
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

	streetType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Street",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"score":       &graphql.Field{Type: graphql.Float},
			"bucket":      &graphql.Field{Type: graphql.String},
			"color":       &graphql.Field{Type: graphql.String},
			"sampleCount": &graphql.Field{Type: graphql.Int},
			"coordinates": &graphql.Field{Type: graphql.NewList(geoPointType)},
		},
	})

	bucketCountType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BucketCount",
		Fields: graphql.Fields{
			"bucket": &graphql.Field{Type: graphql.String},
			"count":  &graphql.Field{Type: graphql.Int},
		},
	})

	runType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ScoreRun",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"reason":        &graphql.Field{Type: graphql.String},
			"computedAt":    &graphql.Field{Type: graphql.DateTime},
			"streetCount":   &graphql.Field{Type: graphql.Int},
			"fragmentCount": &graphql.Field{Type: graphql.Int},
			"buckets":       &graphql.Field{Type: graphql.NewList(bucketCountType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"streets": &graphql.Field{
				Type:        graphql.NewList(streetType),
				Description: "Scored streets, optionally restricted to one color bucket",
				Args: graphql.FieldConfigArgument{
					"bucket": &graphql.ArgumentConfig{Type: graphql.String},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultStreetLimit},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					streets, err := deps.Streets.Streets(p.Context)
					if err != nil {
						return nil, err
					}
					var want *domain.ColorBucket
					if raw, ok := p.Args["bucket"].(string); ok && raw != "" {
						b, err := domain.ParseBucket(raw)
						if err != nil {
							return nil, err
						}
						want = &b
					}
					limit, _ := p.Args["limit"].(int)
					if limit <= 0 || limit > maxStreetLimit {
						limit = defaultStreetLimit
					}

					result := make([]map[string]interface{}, 0, limit)
					for _, s := range streets {
						if len(result) == limit {
							break
						}
						if want != nil && s.Bucket != *want {
							continue
						}
						result = append(result, streetToMap(s))
					}
					return result, nil
				},
			},
			"latestRun": &graphql.Field{
				Type:        runType,
				Description: "Most recent persisted scoring run",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					run, err := deps.Streets.LatestRun(p.Context)
					if err != nil || run == nil {
						return nil, err
					}
					summary := run.Summary()
					buckets := make([]map[string]interface{}, 0, len(domain.AllBuckets))
					for _, b := range domain.AllBuckets {
						buckets = append(buckets, map[string]interface{}{
							"bucket": b.String(),
							"count":  summary.BucketCounts[b.String()],
						})
					}
					return map[string]interface{}{
						"id":            summary.RunID,
						"reason":        summary.Reason,
						"computedAt":    summary.ComputedAt,
						"streetCount":   summary.StreetCount,
						"fragmentCount": summary.FragmentCount,
						"buckets":       buckets,
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func streetToMap(s domain.Street) map[string]interface{} {
	coords := make([]map[string]interface{}, len(s.Coordinates))
	for i, p := range s.Coordinates {
		coords[i] = map[string]interface{}{"lat": p.Lat, "lon": p.Lon}
	}
	return map[string]interface{}{
		"id":          s.ID,
		"name":        s.Name,
		"score":       s.Score,
		"bucket":      s.Bucket.String(),
		"color":       s.Color,
		"sampleCount": len(s.Samples),
		"coordinates": coords,
	}
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
