package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/pawcircle/nearby/internal/core/domain"
	"github.com/pawcircle/nearby/internal/core/usecases"
)

func queryFloat(c *fiber.Ctx, key string) (float64, bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, errors.New(key + " must be a number")
	}
	return v, true, nil
}

func queryInt64(c *fiber.Ctx, key string) (*int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errors.New(key + " must be an integer")
	}
	return &v, nil
}

// queryPoint reads an optional lat/lng pair. Supplying only one half is an
// error. Range checks are left to the services.
func queryPoint(c *fiber.Ctx, latKey, lngKey string) (*domain.Point, error) {
	lat, hasLat, err := queryFloat(c, latKey)
	if err != nil {
		return nil, err
	}
	lng, hasLng, err := queryFloat(c, lngKey)
	if err != nil {
		return nil, err
	}
	if hasLat != hasLng {
		return nil, errors.New(latKey + " and " + lngKey + " must be given together")
	}
	if !hasLat {
		return nil, nil
	}
	return &domain.Point{Lng: lng, Lat: lat}, nil
}

func paramID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

// ---- Communities ----

// ListCommunitiesHandler returns a page of communities with Link headers.
func ListCommunitiesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", usecases.DefaultCommunityPage)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > usecases.MaxCommunityPage {
			limit = usecases.DefaultCommunityPage
		}

		communities, total, err := deps.Communities.List(c.UserContext(), offset, limit)
		if err != nil {
			return errorFrom(c, err)
		}
		if communities == nil {
			communities = []domain.Community{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: communities, Pagination: pg})
	}
}

// GetCommunityHandler returns a single community by id.
func GetCommunityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		community, err := deps.Communities.Get(c.UserContext(), id)
		if err != nil {
			return errorFrom(c, err)
		}
		return c.JSON(community)
	}
}

type createCommunityRequest struct {
	Name   string             `json:"name"`
	Bounds domain.BoundingBox `json:"bounds"`
}

// CreateCommunityHandler stores a new community. Admin only.
func CreateCommunityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createCommunityRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		community, err := deps.Communities.Create(c.UserContext(), req.Name, req.Bounds)
		if err != nil {
			return errorFrom(c, err)
		}
		c.Location("/v1/communities/" + strconv.FormatInt(community.ID, 10))
		return c.Status(fiber.StatusCreated).JSON(community)
	}
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

// SetCommunityActiveHandler enables or disables a community. Admin only.
func SetCommunityActiveHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		var req setActiveRequest
		if err := c.BodyParser(&req); err != nil || req.Active == nil {
			return errBadRequest(c, `body must be {"active": true|false}`)
		}
		if err := deps.Communities.SetActive(c.UserContext(), id, *req.Active); err != nil {
			return errorFrom(c, err)
		}
		return c.JSON(fiber.Map{"id": id, "active": *req.Active})
	}
}

// LocateCommunityHandler reports the active community containing a point.
// A point outside every community is not an error.
func LocateCommunityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := queryPoint(c, "lat", "lng")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if p == nil {
			return errBadRequest(c, "lat and lng are required")
		}

		community, found, err := deps.Communities.Locate(c.UserContext(), *p)
		if err != nil {
			return errorFrom(c, err)
		}
		return c.JSON(fiber.Map{"found": found, "community": community})
	}
}

// ---- Orders ----

// NearbyOrdersHandler returns open orders ranked community-first around the
// requester. The requester is the bearer token subject when present, and
// explicit lat/lng or community_id override the stored location.
func NearbyOrdersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q usecases.NearbyQuery
		var err error

		if q.Point, err = queryPoint(c, "lat", "lng"); err != nil {
			return errBadRequest(c, err.Error())
		}
		if q.CommunityID, err = queryInt64(c, "community_id"); err != nil {
			return errBadRequest(c, err.Error())
		}
		if q.RadiusKm, _, err = queryFloat(c, "radius_km"); err != nil {
			return errBadRequest(c, err.Error())
		}
		q.Limit = c.QueryInt("limit", usecases.DefaultNearbyLimit)

		if claims := claimsFrom(c); claims != nil {
			if id, ok := claims.UserID(); ok {
				q.UserID = &id
			}
		}

		res, err := deps.Nearby.Find(c.UserContext(), q)
		if err != nil {
			return errorFrom(c, err)
		}
		if claimsFrom(c) != nil {
			c.Set(fiber.HeaderCacheControl, "private, max-age=30")
		}
		return c.JSON(res)
	}
}

// AssignOrderHandler recomputes the community of one order. Admin only.
func AssignOrderHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		outcome, err := deps.Assignments.AssignOrder(c.UserContext(), id)
		if err != nil {
			return errorFrom(c, err)
		}
		return c.JSON(fiber.Map{"order_id": id, "outcome": outcome})
	}
}

// ---- Distance ----

// DistanceHandler returns the great-circle distance between two points.
func DistanceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, err := queryPoint(c, "from_lat", "from_lng")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		to, err := queryPoint(c, "to_lat", "to_lng")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if from == nil || to == nil {
			return errBadRequest(c, "from_lat, from_lng, to_lat and to_lng are required")
		}

		km, err := deps.Matcher.Distance(*from, *to)
		if err != nil {
			return errorFrom(c, err)
		}
		c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
		return c.JSON(fiber.Map{"from": from, "to": to, "distance_km": km})
	}
}
