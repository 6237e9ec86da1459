package database

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/slrhub/litrag/helper"
	"github.com/slrhub/litrag/model"
	loadSql "github.com/slrhub/litrag/sql"
)

// WorksDBHandlerFunctions defines the interface for Works database operations.
type WorksDBHandlerFunctions interface {
	InsertWork(work *model.Work) error
	SelectWork(rid uuid.UUID) (*model.Work, error)
	DeleteWork(rid uuid.UUID) error
	InsertProjectWork(projectRID uuid.UUID, workRID uuid.UUID) (*model.ProjectWork, error)
	SelectProjectWork(rid uuid.UUID) (*model.ProjectWork, error)
	SelectProjectWorksByProject(projectRID uuid.UUID, status model.WorkStatus) ([]*model.ProjectWork, error)
	UpdateProjectWorkStatus(rid uuid.UUID, status model.WorkStatus) (*model.ProjectWork, error)
	UpdateProjectWorkPDFKey(rid uuid.UUID, pdfKey string) (*model.ProjectWork, error)
}

// WorksDBHandler handles work-related database operations
type WorksDBHandler struct {
	db *helper.Database
}

// NewWorksDBHandler creates a new works database handler.
// It initializes the database connection, loads work-related SQL functions
// and creates the works and project_works tables.
// If force is true, it will reload the SQL functions even if they already exist.
func NewWorksDBHandler(db *helper.Database, force bool) (*WorksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	worksDbHandler := &WorksDBHandler{
		db: db,
	}

	err := loadSql.LoadWorksSql(worksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load works sql", err)
	}

	_, err = worksDbHandler.db.Instance.Exec(`SELECT init_works();`)
	if err != nil {
		return nil, helper.NewError("init works tables", err)
	}

	db.Logger.Info("Initialized WorksDBHandler")

	return worksDbHandler, nil
}

// InsertWork inserts a new work
func (h *WorksDBHandler) InsertWork(work *model.Work) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_work($1, $2, $3, $4, $5, $6)`,
		work.Title,
		work.Authors,
		work.Year,
		work.DOI,
		work.URL,
		work.Metadata,
	)

	err := row.Scan(
		&work.ID,
		&work.RID,
		&work.Title,
		&work.Authors,
		&work.Year,
		&work.DOI,
		&work.URL,
		&work.Metadata,
		&work.CreatedAt,
		&work.UpdatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectWork retrieves a work by RID
func (h *WorksDBHandler) SelectWork(rid uuid.UUID) (*model.Work, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_work($1)`,
		rid,
	)

	work := &model.Work{}
	err := row.Scan(
		&work.ID,
		&work.RID,
		&work.Title,
		&work.Authors,
		&work.Year,
		&work.DOI,
		&work.URL,
		&work.Metadata,
		&work.CreatedAt,
		&work.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return work, nil
}

// DeleteWork deletes a work by RID, cascading to its project memberships
func (h *WorksDBHandler) DeleteWork(rid uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_work($1)`,
		rid,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// InsertProjectWork adds a work to a project with status undecided
func (h *WorksDBHandler) InsertProjectWork(projectRID uuid.UUID, workRID uuid.UUID) (*model.ProjectWork, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_project_work($1, $2)`,
		projectRID,
		workRID,
	)

	projectWork := &model.ProjectWork{}
	err := row.Scan(
		&projectWork.ID,
		&projectWork.RID,
		&projectWork.ProjectRID,
		&projectWork.WorkRID,
		&projectWork.PDFKey,
		&projectWork.Status,
		&projectWork.CreatedAt,
		&projectWork.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return projectWork, nil
}

// SelectProjectWork retrieves a project work by RID
func (h *WorksDBHandler) SelectProjectWork(rid uuid.UUID) (*model.ProjectWork, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_project_work($1)`,
		rid,
	)

	projectWork := &model.ProjectWork{}
	err := row.Scan(
		&projectWork.ID,
		&projectWork.RID,
		&projectWork.ProjectRID,
		&projectWork.WorkRID,
		&projectWork.PDFKey,
		&projectWork.Status,
		&projectWork.CreatedAt,
		&projectWork.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return projectWork, nil
}

// SelectProjectWorksByProject lists all project works of a project.
// An empty status returns all works regardless of screening status.
func (h *WorksDBHandler) SelectProjectWorksByProject(projectRID uuid.UUID, status model.WorkStatus) ([]*model.ProjectWork, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_project_works_by_project($1, $2)`,
		projectRID,
		string(status),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var projectWorks []*model.ProjectWork
	for rows.Next() {
		projectWork := &model.ProjectWork{}
		err := rows.Scan(
			&projectWork.ID,
			&projectWork.RID,
			&projectWork.ProjectRID,
			&projectWork.WorkRID,
			&projectWork.PDFKey,
			&projectWork.Status,
			&projectWork.CreatedAt,
			&projectWork.UpdatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		projectWorks = append(projectWorks, projectWork)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return projectWorks, nil
}

// UpdateProjectWorkStatus updates the screening status of a project work
func (h *WorksDBHandler) UpdateProjectWorkStatus(rid uuid.UUID, status model.WorkStatus) (*model.ProjectWork, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_project_work_status($1, $2)`,
		rid,
		string(status),
	)

	projectWork := &model.ProjectWork{}
	err := row.Scan(
		&projectWork.ID,
		&projectWork.RID,
		&projectWork.ProjectRID,
		&projectWork.WorkRID,
		&projectWork.PDFKey,
		&projectWork.Status,
		&projectWork.CreatedAt,
		&projectWork.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return projectWork, nil
}

// UpdateProjectWorkPDFKey records the object store key of the cached PDF
func (h *WorksDBHandler) UpdateProjectWorkPDFKey(rid uuid.UUID, pdfKey string) (*model.ProjectWork, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_project_work_pdf_key($1, $2)`,
		rid,
		pdfKey,
	)

	projectWork := &model.ProjectWork{}
	err := row.Scan(
		&projectWork.ID,
		&projectWork.RID,
		&projectWork.ProjectRID,
		&projectWork.WorkRID,
		&projectWork.PDFKey,
		&projectWork.Status,
		&projectWork.CreatedAt,
		&projectWork.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return projectWork, nil
}
