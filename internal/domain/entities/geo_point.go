package entities

import (
	"encoding/json"
	"fmt"
)

// GeoPoint is a GeoJSON point. Coordinates are stored as [longitude, latitude].
type GeoPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewGeoPoint builds a point from latitude and longitude.
func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

// Lat returns the latitude
func (p GeoPoint) Lat() float64 { return p.Coordinates[1] }

// Lng returns the longitude
func (p GeoPoint) Lng() float64 { return p.Coordinates[0] }

// GeoJSON renders the point for ST_GeomFromGeoJSON.
func (p GeoPoint) GeoJSON() string {
	b, _ := json.Marshal(NewGeoPoint(p.Lat(), p.Lng()))
	return string(b)
}

// Scan reads the output of ST_AsGeoJSON.
func (p *GeoPoint) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*p = GeoPoint{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into GeoPoint", src)
	}

	var decoded GeoPoint
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("invalid GeoJSON point: %w", err)
	}
	if decoded.Type != "Point" {
		return fmt.Errorf("unexpected GeoJSON type %q", decoded.Type)
	}
	*p = decoded
	return nil
}
