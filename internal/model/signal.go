package model

import (
	"net/url"
	"strconv"
	"strings"
)

// Triage statuses used by the backend
const (
	TriagePending   = "Pending Triage"
	TriageAssessing = "Under Assessment"
	TriageRejected  = "Rejected"
	TriageArchived  = "Archived"
	TriageEscalated = "Escalated"
)

// Signal is a reported disease event ingested from Beacon
type Signal struct {
	ID               string    `json:"id"`
	BeaconEventID    *string   `json:"beacon_event_id,omitempty"`
	Disease          string    `json:"disease"`
	Country          string    `json:"country"`
	Location         *string   `json:"location,omitempty"`
	DateReported     Timestamp `json:"date_reported"`
	Cases            int       `json:"cases"`
	Deaths           int       `json:"deaths"`
	CaseFatalityRate *float64  `json:"case_fatality_rate,omitempty"`
	Description      *string   `json:"description,omitempty"`
	SourceURL        string    `json:"source_url"`
	TriageStatus     string    `json:"triage_status"`
	PriorityScore    *float64  `json:"priority_score,omitempty"`
	CurrentStatus    string    `json:"current_status"`
	Latitude         *float64  `json:"latitude,omitempty"`
	Longitude        *float64  `json:"longitude,omitempty"`
	CreatedAt        Timestamp `json:"created_at"`
	UpdatedAt        Timestamp `json:"updated_at"`
}

// Place returns "location, country" or just the country
func (s Signal) Place() string {
	if s.Location != nil && *s.Location != "" && *s.Location != s.Country {
		return *s.Location + ", " + s.Country
	}
	return s.Country
}

// Priority returns the priority score or zero when unscored
func (s Signal) Priority() float64 {
	if s.PriorityScore == nil {
		return 0
	}
	return *s.PriorityScore
}

// SignalFilter narrows the signal list. Empty fields are not sent.
type SignalFilter struct {
	Status   string `json:"status,omitempty"`
	Disease  string `json:"disease,omitempty"`
	Location string `json:"location,omitempty"`
}

// Query encodes the filter, omitting blank values so the server default applies
func (f SignalFilter) Query() url.Values {
	q := url.Values{}
	setIfPresent(q, "status", f.Status)
	setIfPresent(q, "disease", f.Disease)
	setIfPresent(q, "location", f.Location)
	return q
}

// FilterOptions enumerates valid disease and location filter values
type FilterOptions struct {
	Diseases  []string `json:"diseases"`
	Locations []string `json:"locations"`
}

// TriageUpdate is the body of POST /signals/{id}/triage
type TriageUpdate struct {
	TriageStatus    string `json:"triage_status,omitempty"`
	TriageNotes     string `json:"triage_notes,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	CurrentStatus   string `json:"current_status,omitempty"`
}

// MapFilter narrows the map data request
type MapFilter struct {
	Status      string
	MinPriority *float64
}

// Query encodes the filter, omitting blank values
func (f MapFilter) Query() url.Values {
	q := url.Values{}
	setIfPresent(q, "status", f.Status)
	if f.MinPriority != nil {
		q.Set("min_priority", strconv.FormatFloat(*f.MinPriority, 'f', -1, 64))
	}
	return q
}

// MapMarker is a geocoded signal
type MapMarker struct {
	ID            string    `json:"id"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	PriorityScore float64   `json:"priority_score"`
	Disease       string    `json:"disease"`
	Country       string    `json:"country"`
	Location      *string   `json:"location,omitempty"`
	Cases         int       `json:"cases"`
	Deaths        int       `json:"deaths"`
	TriageStatus  string    `json:"triage_status"`
	DateReported  Timestamp `json:"date_reported"`
}

// HeatmapPoint carries a normalized 0..1 intensity
type HeatmapPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Intensity float64 `json:"intensity"`
}

// MapData is the body of GET /signals/map-data
type MapData struct {
	Markers       []MapMarker    `json:"markers"`
	HeatmapPoints []HeatmapPoint `json:"heatmap_points"`
	TotalSignals  int            `json:"total_signals"`
}

// ScraperStatus describes the Beacon ingestion job
type ScraperStatus struct {
	IsActive          bool       `json:"is_active"`
	LastSyncAt        *Timestamp `json:"last_sync_at"`
	LastSyncError     *string    `json:"last_sync_error"`
	LastSyncCount     int        `json:"last_sync_count"`
	NextAllowedSyncAt *Timestamp `json:"next_allowed_sync_at"`
	CanSyncNow        bool       `json:"can_sync_now"`
}

// BeaconSyncResult is returned by POST /signals/poll-beacon
type BeaconSyncResult struct {
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

func setIfPresent(q url.Values, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		q.Set(key, v)
	}
}
