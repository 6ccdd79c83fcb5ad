package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/account-service/internal/domain"
)

// PermissionRepository provides read access to the permission catalog.
type PermissionRepository interface {
	List(ctx context.Context) ([]domain.Permission, error)
}

type permissionRepository struct {
	pool *pgxpool.Pool
}

// NewPermissionRepository returns a Postgres-backed implementation.
func NewPermissionRepository(pool *pgxpool.Pool) PermissionRepository {
	return &permissionRepository{pool: pool}
}

func (r *permissionRepository) List(ctx context.Context) ([]domain.Permission, error) {
	const query = `
        SELECT id, name, action, resource, description, created_at
        FROM permissions ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []domain.Permission
	for rows.Next() {
		var perm domain.Permission
		if err := rows.Scan(
			&perm.ID,
			&perm.Name,
			&perm.Action,
			&perm.Resource,
			&perm.Description,
			&perm.CreatedAt,
		); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}
