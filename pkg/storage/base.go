// Package storage provides the record store contract shared by every backend.
//
// All persisted data (sessions, journal entries, mood check-ins, conversations,
// health samples, computed insights) is stored as a generic Record tagged with a
// RecordType. Reconstructable fields live in the Structured JSON side channel and
// queryable tags live in Metadata.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// RecordType tags what kind of entity a record holds.
type RecordType string

const (
	// TypeDeepWorkSession is a completed or in-progress focused-work session.
	TypeDeepWorkSession RecordType = "deep_work_session"

	// TypeCorrelationInsight is a computed correlation between two metrics.
	TypeCorrelationInsight RecordType = "correlation_insight"

	// TypeJournalEntry is a free-text journal entry.
	TypeJournalEntry RecordType = "journal_entry"

	// TypeMoodCheckIn is a mood check-in.
	TypeMoodCheckIn RecordType = "mood_checkin"

	// TypeConversation is a saved conversation transcript.
	TypeConversation RecordType = "conversation"

	// TypeHealthSample is a single biometric sample (HRV, heart rate, steps...).
	TypeHealthSample RecordType = "health_sample"

	// TypeWorkout is a recorded workout.
	TypeWorkout RecordType = "workout"

	// TypeSleepSession is one night of sleep with stage breakdown.
	TypeSleepSession RecordType = "sleep_session"

	// TypeHealthAuthorization records whether health access was granted.
	TypeHealthAuthorization RecordType = "health_authorization"
)

// Record is the generic persisted entity.
type Record struct {
	// ID is the unique identifier of the record (snowflake).
	ID int64 `json:"id"`

	// Type tags the kind of entity.
	Type RecordType `json:"type"`

	// LogicalID is an optional upsert key. At most one record exists per
	// (Type, LogicalID) when LogicalID is non-empty.
	LogicalID string `json:"logical_id,omitempty"`

	// Title is a short free-text title.
	Title string `json:"title,omitempty"`

	// Body is the free-text body.
	Body string `json:"body,omitempty"`

	// Structured holds JSON used to reconstruct the typed entity.
	Structured json.RawMessage `json:"structured,omitempty"`

	// Metadata holds queryable tags.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// CreatedAt is when the record was created. Backends set it to now when zero.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the record was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// SetStructured encodes v into the Structured side channel.
func (r *Record) SetStructured(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.Structured = data
	return nil
}

// DecodeStructured decodes the Structured side channel into v.
func (r *Record) DecodeStructured(v interface{}) error {
	if len(r.Structured) == 0 {
		return errors.New("record has no structured payload")
	}
	return json.Unmarshal(r.Structured, v)
}

// MetadataString returns a metadata value as a string, or "" when absent.
func (r *Record) MetadataString(key string) string {
	if r.Metadata == nil {
		return ""
	}
	if s, ok := r.Metadata[key].(string); ok {
		return s
	}
	return ""
}

// FetchOptions narrows a FetchAll query.
type FetchOptions struct {
	// Since excludes records created before this instant (zero = no bound).
	Since time.Time

	// Until excludes records created at or after this instant (zero = no bound).
	Until time.Time

	// Limit sets the maximum number of records to return (0 = unlimited).
	Limit int
}

// RecordStore defines the interface for record storage backends.
//
// All storage implementations (SQLite, PostgreSQL, MySQL) implement it.
type RecordStore interface {
	// FetchAll returns all records of the given type ordered by creation time
	// (oldest first). opts may be nil.
	FetchAll(ctx context.Context, recordType RecordType, opts *FetchOptions) ([]*Record, error)

	// Get retrieves a record by ID. Returns ErrNotFound when missing.
	Get(ctx context.Context, id int64) (*Record, error)

	// FindByLogicalID retrieves the record with the given (type, logical id).
	// Returns ErrNotFound when missing.
	FindByLogicalID(ctx context.Context, recordType RecordType, logicalID string) (*Record, error)

	// Create inserts a record, assigning ID and timestamps when unset.
	Create(ctx context.Context, record *Record) (*Record, error)

	// Update replaces the mutable fields of an existing record.
	Update(ctx context.Context, record *Record) error

	// Delete removes a record by ID.
	Delete(ctx context.Context, id int64) error

	// Close closes the store and releases resources.
	Close() error
}

// FetchOrEmpty calls FetchAll and maps any failure to an empty result. The
// error, if any, is passed to onErr. Aggregators use it so that a failing
// query reads as "no data".
func FetchOrEmpty(ctx context.Context, store RecordStore, recordType RecordType, opts *FetchOptions, onErr func(error)) []*Record {
	if store == nil {
		return nil
	}
	records, err := store.FetchAll(ctx, recordType, opts)
	if err != nil {
		if onErr != nil {
			onErr(err)
		}
		return nil
	}
	return records
}
