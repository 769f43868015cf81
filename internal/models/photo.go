package models

import (
	"time"

	coords "photomap/models"
)

// LocationSource tells where a photo's coordinates came from.
type LocationSource string

const (
	SourceEXIF   LocationSource = "EXIF"
	SourceManual LocationSource = "manual"
)

// MetadataEntry is one manually curated sidecar record. Latitude and Longitude
// are nil unless the sidecar held a JSON number for them.
type MetadataEntry struct {
	Name        string
	Description string
	Latitude    *float64
	Longitude   *float64
}

// Coordinates returns the manual coordinates when both are present. Any pair
// of JSON numbers is taken as given; range checks apply to embedded data only.
func (e MetadataEntry) Coordinates() (coords.Coordinates, bool) {
	if e.Latitude == nil || e.Longitude == nil {
		return coords.Coordinates{}, false
	}
	return coords.Coordinates{Latitude: *e.Latitude, Longitude: *e.Longitude}, true
}

// PhotoLocation is one record of the photo-locations artifact.
type PhotoLocation struct {
	Filename    string         `json:"filename"`
	Path        string         `json:"path"`
	Latitude    float64        `json:"latitude"`
	Longitude   float64        `json:"longitude"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Source      LocationSource `json:"source,omitempty"`
}

func (p PhotoLocation) Coordinates() coords.Coordinates {
	return coords.Coordinates{Latitude: p.Latitude, Longitude: p.Longitude}
}

// ArtifactEvent announces a freshly written artifact.
type ArtifactEvent struct {
	Artifact    string    `json:"artifact"`
	Count       int       `json:"count"`
	GeneratedAt time.Time `json:"generated_at"`
	Bucket      string    `json:"bucket,omitempty"`
	Key         string    `json:"key,omitempty"`
}
