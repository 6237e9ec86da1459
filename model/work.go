package model

import (
	"time"

	"github.com/google/uuid"
)

// WorkStatus is the screening decision of a work inside one project.
type WorkStatus string

const (
	StatusIncluded  WorkStatus = "included"
	StatusExcluded  WorkStatus = "excluded"
	StatusUndecided WorkStatus = "undecided"
)

// Work is the global bibliographic record of a paper. The pipeline reads
// works (title, URL, DOI) and never writes them; they are owned by the
// surrounding catalog.
type Work struct {
	ID        int64     `json:"id"`
	RID       uuid.UUID `json:"rid"`
	Title     string    `json:"title"`
	Authors   string    `json:"authors,omitempty"`
	Year      *int      `json:"year,omitempty"`
	DOI       string    `json:"doi,omitempty"`
	URL       string    `json:"url,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectWork associates a work with one review project and carries the
// project-specific state: the cached PDF key and the inclusion decision.
// A work can appear in several projects; the cached PDF belongs to the
// project-scoped wrapper, not to the work itself.
type ProjectWork struct {
	ID         int64      `json:"id"`
	RID        uuid.UUID  `json:"rid"`
	ProjectRID uuid.UUID  `json:"project_rid"`
	WorkRID    uuid.UUID  `json:"work_rid"`
	PDFKey     *string    `json:"pdf_key,omitempty"`
	Status     WorkStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
