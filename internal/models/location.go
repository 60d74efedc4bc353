package models

// Location is an optional coordinate pair attached to an analysis
// request. It lives only in transient scan state and is never persisted.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
