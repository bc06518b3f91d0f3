package domain

import "time"

// DraftState is the lifecycle state of a parcel draft.
type DraftState int

const (
	DraftEmpty DraftState = iota
	DraftDrawing
	DraftComputing
	DraftReady
	DraftSubmitting
	DraftPersistedRemote
	DraftPersistedLocal
	DraftCanceled
)

var draftStateNames = map[DraftState]string{
	DraftEmpty:           "empty",
	DraftDrawing:         "drawing",
	DraftComputing:       "computing",
	DraftReady:           "ready",
	DraftSubmitting:      "submitting",
	DraftPersistedRemote: "persisted_remote",
	DraftPersistedLocal:  "persisted_local_fallback",
	DraftCanceled:        "canceled",
}

func (s DraftState) String() string {
	if n, ok := draftStateNames[s]; ok {
		return n
	}
	return "unknown"
}

// MarshalText renders the state name in JSON.
func (s DraftState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transitions are possible.
func (s DraftState) Terminal() bool {
	return s == DraftPersistedRemote || s == DraftPersistedLocal || s == DraftCanceled
}

// DraftSnapshot is a read-only view of a draft.
type DraftSnapshot struct {
	ID               string     `json:"id"`
	State            DraftState `json:"state"`
	Name             string     `json:"name,omitempty"`
	Points           Ring       `json:"points"`
	Centroid         *GeoPoint  `json:"centroid,omitempty"`
	SurfaceArea      *float64   `json:"surface_area,omitempty"`
	Perimeter        *float64   `json:"perimeter,omitempty"`
	Altitude         *float64   `json:"altitude,omitempty"`
	FetchingAltitude bool       `json:"fetching_altitude"`
	ParcelID         int64      `json:"parcel_id,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// SubmitResult describes how a submission ended.
type SubmitResult struct {
	State   DraftState `json:"state"`
	Parcel  *Parcel    `json:"parcel,omitempty"`
	TempID  string     `json:"temp_id,omitempty"`
	Warning string     `json:"warning,omitempty"`
}
