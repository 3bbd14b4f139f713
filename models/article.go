// Package models defines data structures shared across the catalog service.
package models

import (
	"encoding/json"
	"time"
)

// Availability is the normalized stock signal of an article.
type Availability string

const (
	AvailabilityUnknown     Availability = ""
	AvailabilityAvailable   Availability = "S"
	AvailabilityUnavailable Availability = "N"
	AvailabilityInquire     Availability = "C"
)

// Valid reports whether a is one of the three canonical states.
func (a Availability) Valid() bool {
	switch a {
	case AvailabilityAvailable, AvailabilityUnavailable, AvailabilityInquire:
		return true
	}
	return false
}

// MarshalJSON renders unknown availability as null.
func (a Availability) MarshalJSON() ([]byte, error) {
	if !a.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(string(a))
}

// UnmarshalJSON accepts null or one of the canonical letters.
func (a *Availability) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = AvailabilityUnknown
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*a = Availability(s)
	if !a.Valid() {
		*a = AvailabilityUnknown
	}
	return nil
}

// Article is one normalized catalog row.
type Article struct {
	Code           string       `csv:"codigo" json:"codigo"`
	Description    string       `csv:"descripcion" json:"descripcion"`
	Price          float64      `csv:"precio" json:"precio"`
	Availability   Availability `csv:"stock" json:"stock"`
	Category       string       `csv:"rubro" json:"rubro"`
	Brand          string       `csv:"marca" json:"marca"`
	PriceList      string       `csv:"lista" json:"lista"`
	EquivalentCode string       `csv:"equivalente" json:"equivalente"`
}

// Refresh outcomes recorded in RefreshStatus.State.
const (
	StateOK    = "OK"
	StateError = "ERROR"
)

// RefreshStatus describes the last refresh attempt. Only one exists at a time.
type RefreshStatus struct {
	Source     string    `json:"fuente"`
	UpdatedAt  time.Time `json:"ultima_actualizacion"`
	State      string    `json:"estado"`
	Details    string    `json:"detalles"`
	RunID      string    `json:"run_id,omitempty"`
	DurationMS int64     `json:"duracion_ms"`
}

// RefreshOutcome summarizes a completed refresh run.
type RefreshOutcome struct {
	RunID       string
	StartTime   time.Time
	EndTime     time.Time
	Articles    int
	Rows        int
	SkippedRows int
	FeedBytes   int
	Attempts    int
}

// Filters narrows a catalog query. Empty fields do not filter.
type Filters struct {
	Code         string
	Description  string
	Availability string
	Category     string
	Brand        string
	PriceList    string
}

// Page is one paginated slice of a filtered catalog.
type Page struct {
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
	Articles []Article `json:"articulos"`
}
