package blog

import (
	"time"

	"github.com/google/uuid"
)

type audit struct {
	CreatedAt time.Time `dawn:"noupdate"`
	UpdatedAt time.Time
}

type Post struct {
	ID    int32   `db:"id" dawn:"key,noinsert,noupdate"`
	Title string  `db:"title"`
	Body  *string `db:"body"`
}

type Author struct {
	audit
	ID     uuid.UUID `dawn:"key_noupdate"`
	Name   string
	Secret string `db:"-"`
	notes  string
}

// Draft has no tags and is only loaded when named.
type Draft struct {
	Title string
}

type Status string
