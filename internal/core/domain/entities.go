package domain

import (
	"time"
)

// Parcel is a farm plot owned by a farmer.
type Parcel struct {
	ID           int64     `json:"id"`
	OwnerID      int64     `json:"owner_id"`
	Name         *string   `json:"name,omitempty"`
	Localisation *string   `json:"localisation,omitempty"`
	Location     *GeoPoint `json:"location,omitempty"`
	Boundary     Ring      `json:"boundary,omitempty"`
	SurfaceArea  *float64  `json:"surface_area,omitempty"` // square metres
	Altitude     *float64  `json:"altitude,omitempty"`     // metres
	CreatedAt    time.Time `json:"created_at"`
}

// ParcelRecord is the flat wire shape exchanged with the parcel backend.
// Polygon holds a JSON array of {lat,lng} vertices. Absent values are
// omitted rather than sent as zero.
type ParcelRecord struct {
	ID           int64      `json:"id,omitempty"`
	OwnerID      *int64     `json:"owner_id,omitempty"`
	Name         *string    `json:"name,omitempty"`
	Localisation *string    `json:"localisation,omitempty"`
	Surface      *float64   `json:"surface,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	Altitude     *float64   `json:"altitude,omitempty"`
	Polygon      *string    `json:"polygon,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// ParcelPatch is a partial update. Nil fields are left untouched.
type ParcelPatch struct {
	Name         *string
	Localisation *string
	SurfaceArea  *float64
	Location     *GeoPoint
	Altitude     *float64
	Boundary     Ring
}

// Empty reports whether the patch changes nothing.
func (p ParcelPatch) Empty() bool {
	return p.Name == nil && p.Localisation == nil && p.SurfaceArea == nil &&
		p.Location == nil && p.Altitude == nil && p.Boundary == nil
}

// Farmer is a user account with the farmer role.
type Farmer struct {
	ID        int64     `json:"id"`
	LastName  string    `json:"last_name"`
	FirstName string    `json:"first_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MeteoReading is one recorded weather observation for a parcel.
type MeteoReading struct {
	ID          int64     `json:"id"`
	ParcelID    int64     `json:"parcel_id"`
	Temperature *float64  `json:"temperature,omitempty"` // °C
	Humidity    *float64  `json:"humidity,omitempty"`    // %
	Rain        *float64  `json:"rain,omitempty"`        // mm
	Wind        *float64  `json:"wind,omitempty"`        // m/s
	TakenAt     time.Time `json:"taken_at"`
}

// MeteoSummary groups readings with the chill-hour count used by growers.
type MeteoSummary struct {
	ParcelID    int64          `json:"parcel_id"`
	Day         string         `json:"day,omitempty"`
	Readings    []MeteoReading `json:"readings"`
	HoursBelow7 int            `json:"hours_below_7"`
}

// Weather is a current-conditions snapshot from the weather provider.
type Weather struct {
	Place       string    `json:"place,omitempty"`
	Location    *GeoPoint `json:"location,omitempty"`
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feels_like"`
	Humidity    int       `json:"humidity"`
	Pressure    int       `json:"pressure"`
	WindSpeed   float64   `json:"wind_speed"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	ObservedAt  time.Time `json:"observed_at"`
}

// GeoFix is a one-shot device position.
type GeoFix struct {
	Point    GeoPoint `json:"point"`
	Altitude *float64 `json:"altitude,omitempty"`
	Accuracy float64  `json:"accuracy,omitempty"`
}

// Session identifies the caller. OwnerID is nil when the owner is unknown.
type Session struct {
	OwnerID *int64
	Token   string
}

// Known reports whether the session carries an owner id.
func (s Session) Known() bool { return s.OwnerID != nil }

// ParcelCreated is the notification emitted whenever a parcel is saved,
// remotely or to the local fallback store.
type ParcelCreated struct {
	ParcelID  int64     `json:"parcel_id,omitempty"`
	TempID    string    `json:"temp_id,omitempty"`
	OwnerID   *int64    `json:"owner_id,omitempty"`
	Name      string    `json:"name"`
	Local     bool      `json:"local"`
	CreatedAt time.Time `json:"created_at"`
}

// UnsentDraft is a parcel that could not be sent to the backend and is
// kept for a later retry.
type UnsentDraft struct {
	TempID    string       `json:"temp_id"`
	Record    ParcelRecord `json:"record"`
	SavedAt   time.Time    `json:"saved_at"`
	LastError string       `json:"last_error,omitempty"`
}
