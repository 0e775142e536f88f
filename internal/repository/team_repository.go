package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/fieldops/dispatch-api/internal/models"
)

type TeamRepository interface {
	ListActiveMembers(ctx context.Context, businessID string) ([]models.TeamMember, error)
}

type teamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) ListActiveMembers(ctx context.Context, businessID string) ([]models.TeamMember, error) {
	const query = `
		SELECT id, business_id, name, role, active
		FROM team_members
		WHERE business_id = $1 AND active = true
		ORDER BY name ASC
	`
	var members []models.TeamMember
	if err := r.db.SelectContext(ctx, &members, query, businessID); err != nil {
		return nil, errors.Wrap(err, "list active team members")
	}
	return members, nil
}
