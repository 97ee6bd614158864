package sighting

import "time"

// entityType identifies a sighting document in the intelligence platform.
const entityType = "eclecticiq-sighting"

// timeLayout is the timestamp format the platform expects.
const timeLayout = "2006-01-02T15:04:05Z"

// Entity is the document delivered to the platform's entities endpoint.
type Entity struct {
	Data EntityData `json:"data"`
}

// EntityData wraps the sighting details and submission metadata.
type EntityData struct {
	Data EntityDetails `json:"data"`
	Meta EntityMeta    `json:"meta"`
}

// EntityDetails holds the sighting fields proper.
type EntityDetails struct {
	Type            string          `json:"type"`
	Value           string          `json:"value"`
	Description     string          `json:"description"`
	Timestamp       string          `json:"timestamp"`
	Confidence      string          `json:"confidence"`
	Title           string          `json:"title"`
	SecurityControl SecurityControl `json:"security_control"`
}

// SecurityControl describes the detecting control and its observation window.
type SecurityControl struct {
	Type string      `json:"type"`
	Time ControlTime `json:"time"`
}

// ControlTime carries the observation start, midnight UTC of the submission
// day.
type ControlTime struct {
	StartTime string `json:"start_time"`
}

// EntityMeta carries tags and the platform ingest time.
type EntityMeta struct {
	Tags       []string `json:"tags"`
	IngestTime string   `json:"ingest_time"`
}

// BuildEntity shapes a composed payload into the platform entity document.
// The tag string is carried as a single-element list, matching what the
// platform's sighting schema expects from this integration.
func BuildEntity(p Payload, now time.Time) Entity {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	return Entity{
		Data: EntityData{
			Data: EntityDetails{
				Type:        entityType,
				Value:       p.SightingValue,
				Description: p.SightingDesc,
				Timestamp:   now.Format(timeLayout),
				Confidence:  p.ConfidenceLevel,
				Title:       p.SightingTitle,
				SecurityControl: SecurityControl{
					Type: p.SightingType,
					Time: ControlTime{
						StartTime: midnight.Format(timeLayout),
					},
				},
			},
			Meta: EntityMeta{
				Tags:       []string{p.SightingTags},
				IngestTime: now.Format(timeLayout),
			},
		},
	}
}
