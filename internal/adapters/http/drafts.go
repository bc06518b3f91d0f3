package http

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/climatrack/climatrack/internal/adapters/geolocation"
	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/core/usecases"
	"github.com/climatrack/climatrack/internal/pkg/coords"
)

func draftFrom(c *fiber.Ctx, deps *Dependencies) (*usecases.Draft, error) {
	return deps.Drafts.Get(c.Params("id"), sessionFrom(c))
}

// draftError answers edits that race a submission, or hit a closed draft,
// with 409.
func draftError(c *fiber.Ctx, err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) && ve.Field == "" {
		return errConflict(c, ve.Reason)
	}
	return writeError(c, err)
}

// CreateDraftHandler starts an empty draft for the caller's session.
func CreateDraftHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d := deps.Drafts.Create(sessionFrom(c))
		return c.Status(fiber.StatusCreated).JSON(d.Snapshot())
	}
}

// GetDraftHandler returns the current draft state.
func GetDraftHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := draftFrom(c, deps)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(d.Snapshot())
	}
}

// AddDraftPointHandler appends a vertex. The body is a point in canonical
// or legacy form.
func AddDraftPointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := draftFrom(c, deps)
		if err != nil {
			return writeError(c, err)
		}
		f, err := decodeFields(c)
		if err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		res := coords.Normalize(f)
		if res.Point == nil || res.Source == coords.SourcePolygon {
			return errBadRequest(c, "latitude and longitude are required")
		}
		snap, err := d.AddPoint(*res.Point)
		if err != nil {
			return draftError(c, err)
		}
		return c.JSON(snap)
	}
}

// RemoveDraftPointHandler deletes the vertex at :index.
func RemoveDraftPointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := draftFrom(c, deps)
		if err != nil {
			return writeError(c, err)
		}
		i, err := strconv.Atoi(c.Params("index"))
		if err != nil {
			return errBadRequest(c, "index must be an integer")
		}
		snap, err := d.RemovePoint(i)
		if err != nil {
			return draftError(c, err)
		}
		return c.JSON(snap)
	}
}

// RenameDraftHandler sets the parcel name.
func RenameDraftHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := draftFrom(c, deps)
		if err != nil {
			return writeError(c, err)
		}
		var body struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		snap, err := d.SetName(body.Name)
		if err != nil {
			return draftError(c, err)
		}
		return c.JSON(snap)
	}
}

type submitRequest struct {
	DeviceFix *struct {
		Latitude  float64  `json:"latitude"`
		Longitude float64  `json:"longitude"`
		Altitude  *float64 `json:"altitude"`
		Accuracy  float64  `json:"accuracy"`
	} `json:"device_fix"`
}

// SubmitDraftHandler saves the draft to the backend, or to the local
// fallback store. A device_fix in the body is used to fill in coordinates
// the backend did not return.
func SubmitDraftHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := draftFrom(c, deps)
		if err != nil {
			return writeError(c, err)
		}

		var opts []usecases.SubmitOption
		if len(strings.TrimSpace(string(c.Body()))) > 0 {
			var req submitRequest
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid JSON body")
			}
			if fx := req.DeviceFix; fx != nil {
				opts = append(opts, usecases.WithGeolocator(geolocation.Static{Fix: &domain.GeoFix{
					Point:    domain.GeoPoint{Latitude: fx.Latitude, Longitude: fx.Longitude},
					Altitude: fx.Altitude,
					Accuracy: fx.Accuracy,
				}}))
			}
		}

		res, err := d.Submit(c.UserContext(), opts...)
		if err != nil {
			var ve *domain.ValidationError
			if errors.As(err, &ve) && ve.Field != "" {
				return errBadRequest(c, ve.Error())
			}
			return draftError(c, err)
		}
		return c.JSON(res)
	}
}

// CancelDraftHandler abandons the draft but keeps it readable.
func CancelDraftHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := draftFrom(c, deps)
		if err != nil {
			return writeError(c, err)
		}
		snap, err := d.Cancel()
		if err != nil {
			return draftError(c, err)
		}
		return c.JSON(snap)
	}
}

// DiscardDraftHandler cancels and forgets the draft.
func DiscardDraftHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Drafts.Discard(c.Params("id"), sessionFrom(c)); err != nil {
			return draftError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
