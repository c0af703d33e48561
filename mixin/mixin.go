// Package mixin provides field sets commonly shared by records. Embed them
// without a db tag and their columns are flattened into the record:
//
//	type Post struct {
//	    mixin.ID
//	    mixin.Time
//	    Title string `db:"title"`
//	}
//
// The column groups follow from the markers on each field: CreatedAt is
// written on insert only, a UUID key is generated by the application and
// never updated.
package mixin

import (
	"time"

	"github.com/google/uuid"
)

// ID is a UUID key chosen by the application.
type ID struct {
	ID uuid.UUID `db:"id" dawn:"key,noupdate"`
}

// NewID returns an ID holding a fresh random UUID.
func NewID() ID { return ID{ID: uuid.New()} }

// CreateTime records when a row was inserted.
type CreateTime struct {
	CreatedAt time.Time `db:"created_at" dawn:"noupdate"`
}

// UpdateTime records when a row was last written.
type UpdateTime struct {
	UpdatedAt time.Time `db:"updated_at"`
}

// Time combines CreateTime and UpdateTime.
type Time struct {
	CreateTime
	UpdateTime
}

// Touch sets both timestamps to now, keeping an existing CreatedAt.
func (t *Time) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}

// SoftDelete marks rows as deleted instead of removing them.
type SoftDelete struct {
	DeletedAt *time.Time `db:"deleted_at"`
}

// NotDeleted is a filter fragment selecting live rows.
const NotDeleted = "deleted_at IS NULL"

// Deleted reports whether the row is soft deleted.
func (s SoftDelete) Deleted() bool { return s.DeletedAt != nil }

// MarkDeleted sets the deletion time. Persist the record with an update.
func (s *SoftDelete) MarkDeleted(at time.Time) { s.DeletedAt = &at }

// TenantID scopes a row to a tenant. The tenant of a row never changes.
type TenantID struct {
	TenantID string `db:"tenant_id" dawn:"noupdate"`
}

// TimeSoftDelete combines Time and SoftDelete.
type TimeSoftDelete struct {
	Time
	SoftDelete
}
