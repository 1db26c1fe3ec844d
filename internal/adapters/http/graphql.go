package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/pawcircle/nearby/internal/core/domain"
	"github.com/pawcircle/nearby/internal/core/usecases"
)

const userIDKey ctxKey = "user_id"

// buildSchema creates the GraphQL schema wired to our services. Struct
// fields resolve through their json tags.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	pointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Point",
		Fields: graphql.Fields{
			"lng": &graphql.Field{Type: graphql.Float},
			"lat": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BoundingBox",
		Fields: graphql.Fields{
			"min_lng": &graphql.Field{Type: graphql.Float},
			"max_lng": &graphql.Field{Type: graphql.Float},
			"min_lat": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
		},
	})

	communityType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Community",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.Int},
			"name":       &graphql.Field{Type: graphql.String},
			"bounds":     &graphql.Field{Type: boundsType},
			"active":     &graphql.Field{Type: graphql.Boolean},
			"created_at": &graphql.Field{Type: graphql.DateTime},
			"center": &graphql.Field{
				Type: pointType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					switch c := p.Source.(type) {
					case domain.Community:
						return c.Center(), nil
					case *domain.Community:
						return c.Center(), nil
					}
					return nil, nil
				},
			},
		},
	})

	orderType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Order",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.Int},
			"owner_id":     &graphql.Field{Type: graphql.Int},
			"title":        &graphql.Field{Type: graphql.String},
			"service_type": &graphql.Field{Type: graphql.String},
			"reward":       &graphql.Field{Type: graphql.Float},
			"location":     &graphql.Field{Type: pointType},
			"community_id": &graphql.Field{Type: graphql.Int},
			"created_at":   &graphql.Field{Type: graphql.DateTime},
		},
	})

	matchType := graphql.NewObject(graphql.ObjectConfig{
		Name: "NearbyMatch",
		Fields: graphql.Fields{
			"candidate":       &graphql.Field{Type: orderType},
			"distance_km":     &graphql.Field{Type: graphql.Float},
			"location_source": &graphql.Field{Type: graphql.String},
			"segment":         &graphql.Field{Type: graphql.String},
		},
	})

	requesterType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Requester",
		Fields: graphql.Fields{
			"point":        &graphql.Field{Type: pointType},
			"community_id": &graphql.Field{Type: graphql.Int},
		},
	})

	nearbyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "NearbyResult",
		Fields: graphql.Fields{
			"requester": &graphql.Field{Type: requesterType},
			"radius_km": &graphql.Field{Type: graphql.Float},
			"results":   &graphql.Field{Type: graphql.NewList(matchType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"communities": &graphql.Field{
				Type:        graphql.NewList(communityType),
				Description: "List communities ordered by id",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: usecases.DefaultCommunityPage},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					communities, _, err := deps.Communities.List(p.Context, p.Args["offset"].(int), p.Args["limit"].(int))
					return communities, err
				},
			},
			"community": &graphql.Field{
				Type:        communityType,
				Description: "Get a community by id",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Communities.Get(p.Context, int64(p.Args["id"].(int)))
				},
			},
			"locateCommunity": &graphql.Field{
				Type:        communityType,
				Description: "The active community containing a point, or null",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt := domain.Point{Lat: p.Args["lat"].(float64), Lng: p.Args["lng"].(float64)}
					c, found, err := deps.Communities.Locate(p.Context, pt)
					if err != nil || !found {
						return nil, err
					}
					return c, nil
				},
			},
			"nearbyOrders": &graphql.Field{
				Type:        nearbyType,
				Description: "Open orders ranked community-first around the requester",
				Args: graphql.FieldConfigArgument{
					"lat":         &graphql.ArgumentConfig{Type: graphql.Float},
					"lng":         &graphql.ArgumentConfig{Type: graphql.Float},
					"communityId": &graphql.ArgumentConfig{Type: graphql.Int},
					"radiusKm":    &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
					"limit":       &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: usecases.DefaultNearbyLimit},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q := usecases.NearbyQuery{
						RadiusKm: p.Args["radiusKm"].(float64),
						Limit:    p.Args["limit"].(int),
					}
					lat, hasLat := p.Args["lat"].(float64)
					lng, hasLng := p.Args["lng"].(float64)
					if hasLat != hasLng {
						return nil, errors.New("lat and lng must be given together")
					}
					if hasLat {
						q.Point = &domain.Point{Lat: lat, Lng: lng}
					}
					if id, ok := p.Args["communityId"].(int); ok {
						cid := int64(id)
						q.CommunityID = &cid
					}
					if uid, ok := p.Context.Value(userIDKey).(int64); ok {
						q.UserID = &uid
					}
					return deps.Nearby.Find(p.Context, q)
				},
			},
			"distance": &graphql.Field{
				Type:        graphql.Float,
				Description: "Great-circle distance in kilometres",
				Args: graphql.FieldConfigArgument{
					"fromLat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"fromLng": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"toLat":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"toLng":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					from := domain.Point{Lat: p.Args["fromLat"].(float64), Lng: p.Args["fromLng"].(float64)}
					to := domain.Point{Lat: p.Args["toLat"].(float64), Lng: p.Args["toLng"].(float64)}
					return deps.Matcher.Distance(from, to)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
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
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return errBadRequest(c, "invalid request body")
		}

		ctx := c.UserContext()
		if claims := claimsFrom(c); claims != nil {
			if id, ok := claims.UserID(); ok {
				ctx = context.WithValue(ctx, userIDKey, id)
			}
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        ctx,
		})
		c.Set(fiber.HeaderCacheControl, "private, max-age=0")
		return c.JSON(result)
	}
}
