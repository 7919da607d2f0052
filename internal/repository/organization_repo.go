package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"org-lifecycle/internal/database"
	"org-lifecycle/internal/model"
)

type OrganizationRepository struct {
	db database.Querier
}

func NewOrganizationRepository(db database.Querier) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) FindByID(ctx context.Context, id int64) (model.Organization, error) {
	var (
		org    model.Organization
		status string
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, name, status, archived_at FROM organizations WHERE id = $1`, id,
	).Scan(&org.ID, &org.Name, &status, &org.ArchivedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Organization{}, fmt.Errorf("organization %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Organization{}, model.StoreError("find organization", err)
	}
	org.Status = model.OrganizationStatus(status)
	return org, nil
}
