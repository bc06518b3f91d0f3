package http

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/pkg/coords"
)

// decodeFields reads a loosely typed JSON object body. Numbers are kept as
// json.Number so ids do not lose precision.
func decodeFields(c *fiber.Ctx) (coords.Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.UseNumber()
	var f coords.Fields
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	if f == nil {
		f = coords.Fields{}
	}
	return f, nil
}

func records(parcels []domain.Parcel) []domain.ParcelRecord {
	out := make([]domain.ParcelRecord, 0, len(parcels))
	for _, p := range parcels {
		out = append(out, coords.FromParcel(p))
	}
	return out
}

// ownerQuery reads ?owner=, also accepting the legacy user_id name.
func ownerQuery(c *fiber.Ctx) (int64, bool) {
	for _, k := range []string{"owner", "user_id"} {
		if v := c.Query(k); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			return id, err == nil && id > 0
		}
	}
	return 0, false
}

func idParam(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil && id > 0
}

// ---- Parcels ----

// GetParcelsHandler serves GET /v1/parcels?owner= (list) and ?id= (one).
func GetParcelsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if v := c.Query("id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil || id <= 0 {
				return errBadRequest(c, "id must be a positive integer")
			}
			p, err := deps.Parcels.Get(c.UserContext(), id)
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(coords.FromParcel(*p))
		}

		owner, ok := ownerQuery(c)
		if !ok {
			return errBadRequest(c, "owner or id query parameter is required")
		}
		parcels, err := deps.Parcels.ListByOwner(c.UserContext(), owner)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(paginate(c, records(parcels), 500))
	}
}

// CreateParcelHandler serves POST /v1/parcels. The body goes through the
// coordinate normalizer, so legacy lat/lng, user_id and nom are accepted.
func CreateParcelHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := decodeFields(c)
		if err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		rec := coords.DecodeRecord(f)

		if s := sessionFrom(c); s.Known() {
			switch {
			case rec.OwnerID == nil:
				rec.OwnerID = s.OwnerID
			case *rec.OwnerID != *s.OwnerID:
				return errForbidden(c, "owner_id does not match the session")
			}
		}

		p, err := deps.Parcels.Create(c.UserContext(), rec)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(coords.FromParcel(*p))
	}
}

// UpdateParcelHandler serves PUT /v1/parcels with a partial body keyed by
// id (body or query).
func UpdateParcelHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := decodeFields(c)
		if err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		rec := coords.DecodeRecord(f)
		if rec.ID == 0 {
			if id, err := strconv.ParseInt(c.Query("id"), 10, 64); err == nil {
				rec.ID = id
			}
		}

		p, err := deps.Parcels.Update(c.UserContext(), rec)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(coords.FromParcel(*p))
	}
}

// DeleteParcelHandler serves DELETE /v1/parcels?id=.
func DeleteParcelHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Query("id"), 10, 64)
		if err != nil || id <= 0 {
			return errBadRequest(c, "id must be a positive integer")
		}
		if err := deps.Parcels.Delete(c.UserContext(), id); err != nil {
			return writeError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ParcelBoundsHandler returns the map box covering an owner's parcels.
func ParcelBoundsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := ownerQuery(c)
		if !ok {
			return errBadRequest(c, "owner query parameter is required")
		}
		b, err := deps.Parcels.Bounds(c.UserContext(), owner)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"bounds": b})
	}
}

// ParcelGeoJSONHandler exports an owner's parcels as a FeatureCollection.
func ParcelGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := ownerQuery(c)
		if !ok {
			return errBadRequest(c, "owner query parameter is required")
		}
		fc, err := deps.Parcels.GeoJSON(c.UserContext(), owner)
		if err != nil {
			return writeError(c, err)
		}
		data, err := fc.MarshalJSON()
		if err != nil {
			return errInternal(c, "encode geojson")
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}

// ParcelWeatherHandler returns current conditions at a parcel.
func ParcelWeatherHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return errBadRequest(c, "parcel id must be a positive integer")
		}
		w, err := deps.Weather.ForParcel(c.UserContext(), id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(w)
	}
}

// FillParcelAltitudeHandler resolves and stores a missing parcel altitude.
func FillParcelAltitudeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return errBadRequest(c, "parcel id must be a positive integer")
		}
		p, err := deps.Parcels.FillAltitude(c.UserContext(), id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(coords.FromParcel(*p))
	}
}

// ---- Farmers ----

// ListFarmersHandler returns farmer accounts, paginated.
func ListFarmersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		farmers, err := deps.Farmers.List(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(paginate(c, farmers, 200))
	}
}

// GetFarmerHandler returns one farmer.
func GetFarmerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return errBadRequest(c, "farmer id must be a positive integer")
		}
		f, err := deps.Farmers.Get(c.UserContext(), id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(f)
	}
}

// DeleteFarmerHandler removes a farmer and their parcels.
func DeleteFarmerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return errBadRequest(c, "farmer id must be a positive integer")
		}
		if err := deps.Farmers.Delete(c.UserContext(), id); err != nil {
			return writeError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// FarmerParcelsHandler lists a farmer's parcels.
func FarmerParcelsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return errBadRequest(c, "farmer id must be a positive integer")
		}
		parcels, err := deps.Farmers.Parcels(c.UserContext(), id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(records(parcels))
	}
}

// ---- Meteo ----

// RecordMeteoHandler stores one weather reading.
func RecordMeteoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var r domain.MeteoReading
		if err := json.Unmarshal(c.Body(), &r); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		r.ID = 0
		if err := deps.Meteo.Record(c.UserContext(), &r); err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(r)
	}
}

// MeteoSummaryHandler lists readings of a parcel with the chill-hour count.
func MeteoSummaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Query("parcel_id"), 10, 64)
		if err != nil || id <= 0 {
			return errBadRequest(c, "parcel_id query parameter is required")
		}
		sum, err := deps.Meteo.Summary(c.UserContext(), id, c.Query("day"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(sum)
	}
}

// ---- Geo helpers ----

// AltitudeHandler resolves the altitude of a point. An unknown altitude is
// null, never an error.
func AltitudeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		p := domain.GeoPoint{Latitude: lat, Longitude: lng}
		if errLat != nil || errLng != nil || !p.Valid() {
			return errBadRequest(c, "lat and lng must be valid coordinates")
		}

		var alt *float64
		if deps.Altitude != nil {
			alt = deps.Altitude.Resolve(c.UserContext(), p)
		}
		return c.JSON(fiber.Map{"latitude": lat, "longitude": lng, "altitude": alt})
	}
}

// NormalizeHandler exposes the coordinate normalizer to clients that hold
// legacy records.
func NormalizeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := decodeFields(c)
		if err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		res := coords.Normalize(f)
		return c.JSON(fiber.Map{
			"point":    res.Point,
			"altitude": res.Altitude,
			"source":   res.Source.String(),
		})
	}
}
