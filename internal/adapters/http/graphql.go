package http

import (
	"math"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/trackmotion/internal/core/domain"
)

// seriesField resolves a domain.Series field, mapping non-finite values to null.
func seriesField(get func(*domain.Kinematics) domain.Series) *graphql.Field {
	return &graphql.Field{
		Type: graphql.NewList(graphql.Float),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			var s domain.Series
			switch k := p.Source.(type) {
			case domain.Kinematics:
				s = get(&k)
			case *domain.Kinematics:
				s = get(k)
			}
			if s == nil {
				return nil, nil
			}
			out := make([]interface{}, len(s))
			for i, v := range s {
				if !math.IsNaN(v) && !math.IsInf(v, 0) {
					out[i] = v
				}
			}
			return out, nil
		},
	}
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	warningType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Warning",
		Fields: graphql.Fields{
			"index":   &graphql.Field{Type: graphql.Int},
			"code":    &graphql.Field{Type: graphql.String},
			"message": &graphql.Field{Type: graphql.String},
		},
	})

	kinematicsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Kinematics",
		Fields: graphql.Fields{
			"elapsed_s":            seriesField(func(k *domain.Kinematics) domain.Series { return k.Elapsed }),
			"ns_displacement_km":   seriesField(func(k *domain.Kinematics) domain.Series { return k.DisplacementNS }),
			"ew_displacement_km":   seriesField(func(k *domain.Kinematics) domain.Series { return k.DisplacementEW }),
			"ns_velocity_kms":      seriesField(func(k *domain.Kinematics) domain.Series { return k.VelocityNS }),
			"ew_velocity_kms":      seriesField(func(k *domain.Kinematics) domain.Series { return k.VelocityEW }),
			"ns_acceleration_kms2": seriesField(func(k *domain.Kinematics) domain.Series { return k.AccelerationNS }),
			"ew_acceleration_kms2": seriesField(func(k *domain.Kinematics) domain.Series { return k.AccelerationEW }),
		},
	})

	summaryFields := func() graphql.Fields {
		return graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"track_name":    &graphql.Field{Type: graphql.String},
			"variant":       &graphql.Field{Type: graphql.String},
			"origin":        &graphql.Field{Type: geoPointType},
			"started_at":    &graphql.Field{Type: graphql.DateTime},
			"sample_count":  &graphql.Field{Type: graphql.Int},
			"dropped_count": &graphql.Field{Type: graphql.Int},
			"created_at":    &graphql.Field{Type: graphql.DateTime},
		}
	}

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "AnalysisSummary",
		Fields: summaryFields(),
	})
	summaryType.AddFieldConfig("duration_s", &graphql.Field{Type: graphql.Float})

	analysisType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Analysis",
		Fields: summaryFields(),
	})
	analysisType.AddFieldConfig("warnings", &graphql.Field{Type: graphql.NewList(warningType)})
	analysisType.AddFieldConfig("kinematics", &graphql.Field{Type: kinematicsType})

	pageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AnalysisPage",
		Fields: graphql.Fields{
			"total": &graphql.Field{Type: graphql.Int},
			"items": &graphql.Field{Type: graphql.NewList(summaryType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"analysis": &graphql.Field{
				Type:        analysisType,
				Description: "Get an analysis by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Analyses.Get(p.Context, id)
				},
			},
			"analyses": &graphql.Field{
				Type:        pageType,
				Description: "List analyses, newest first",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					offset := p.Args["offset"].(int)
					limit := p.Args["limit"].(int)
					items, total, err := deps.Analyses.List(p.Context, offset, limit)
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{"total": total, "items": items}, nil
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
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
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
