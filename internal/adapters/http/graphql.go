package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/climatrack/climatrack/internal/core/domain"
)

// parcelToMap flattens a parcel for graphql-go, which resolves nested
// fields from maps more predictably than from pointer-heavy structs.
func parcelToMap(p domain.Parcel) map[string]interface{} {
	m := map[string]interface{}{
		"id":           p.ID,
		"owner_id":     p.OwnerID,
		"name":         p.Name,
		"localisation": p.Localisation,
		"surface_area": p.SurfaceArea,
		"altitude":     p.Altitude,
		"created_at":   p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if p.Location != nil {
		m["location"] = map[string]interface{}{"lat": p.Location.Latitude, "lng": p.Location.Longitude}
	}
	boundary := make([]map[string]interface{}, 0, len(p.Boundary))
	for _, v := range p.Boundary {
		boundary = append(boundary, map[string]interface{}{"lat": v.Latitude, "lng": v.Longitude})
	}
	m["boundary"] = boundary
	return m
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	parcelType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Parcel",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"owner_id":     &graphql.Field{Type: graphql.String},
			"name":         &graphql.Field{Type: graphql.String},
			"localisation": &graphql.Field{Type: graphql.String},
			"surface_area": &graphql.Field{Type: graphql.Float},
			"altitude":     &graphql.Field{Type: graphql.Float},
			"location":     &graphql.Field{Type: geoPointType},
			"boundary":     &graphql.Field{Type: graphql.NewList(geoPointType)},
			"created_at":   &graphql.Field{Type: graphql.String},
		},
	})

	farmerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Farmer",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"last_name":  &graphql.Field{Type: graphql.String},
			"first_name": &graphql.Field{Type: graphql.String},
			"email":      &graphql.Field{Type: graphql.String},
			"phone":      &graphql.Field{Type: graphql.String},
			"address":    &graphql.Field{Type: graphql.String},
		},
	})

	altitudeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Altitude",
		Fields: graphql.Fields{
			"lat":      &graphql.Field{Type: graphql.Float},
			"lng":      &graphql.Field{Type: graphql.Float},
			"altitude": &graphql.Field{Type: graphql.Float},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"parcels": &graphql.Field{
				Type:        graphql.NewList(parcelType),
				Description: "Parcels owned by a farmer, newest first",
				Args: graphql.FieldConfigArgument{
					"owner": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					owner := p.Args["owner"].(int)
					parcels, err := deps.Parcels.ListByOwner(p.Context, int64(owner))
					if err != nil {
						return nil, err
					}
					result := make([]map[string]interface{}, 0, len(parcels))
					for _, pc := range parcels {
						result = append(result, parcelToMap(pc))
					}
					return result, nil
				},
			},
			"parcel": &graphql.Field{
				Type:        parcelType,
				Description: "Get a parcel by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(int)
					pc, err := deps.Parcels.Get(p.Context, int64(id))
					if errors.Is(err, domain.ErrNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return parcelToMap(*pc), nil
				},
			},
			"farmers": &graphql.Field{
				Type:        graphql.NewList(farmerType),
				Description: "List all farmers",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Farmers.List(p.Context)
				},
			},
			"altitude": &graphql.Field{
				Type:        altitudeType,
				Description: "Ground altitude of a point in metres, null when unknown",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt := domain.GeoPoint{Latitude: p.Args["lat"].(float64), Longitude: p.Args["lng"].(float64)}
					if !pt.Valid() {
						return nil, domain.NewValidationError("point", "lat and lng must be valid coordinates")
					}
					m := map[string]interface{}{"lat": pt.Latitude, "lng": pt.Longitude}
					if deps.Altitude != nil {
						if alt := deps.Altitude.Resolve(p.Context, pt); alt != nil {
							m["altitude"] = *alt
						}
					}
					return m, nil
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
