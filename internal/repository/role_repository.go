package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/account-service/internal/domain"
)

// RoleRepository provides read access to roles and their permissions. The
// auth core never mutates role or permission data.
type RoleRepository interface {
	FindRolesForSubject(ctx context.Context, subjectID string) ([]domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository returns a Postgres-backed implementation.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

// FindRolesForSubject loads the subject's roles with permissions flattened
// in. Called once per protected request; results are never cached.
func (r *roleRepository) FindRolesForSubject(ctx context.Context, subjectID string) ([]domain.Role, error) {
	const query = `
        SELECT r.id, r.name, r.description,
               p.id, p.name, p.action, p.resource, p.description
        FROM roles r
        JOIN user_roles ur ON ur.role_id = r.id
        LEFT JOIN role_permissions rp ON rp.role_id = r.id
        LEFT JOIN permissions p ON p.id = rp.permission_id
        WHERE ur.user_id = $1
        ORDER BY r.name`

	rows, err := r.pool.Query(ctx, query, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRoles(rows)
}

// List returns every role with its permissions, for administrative reads.
func (r *roleRepository) List(ctx context.Context) ([]domain.Role, error) {
	const query = `
        SELECT r.id, r.name, r.description,
               p.id, p.name, p.action, p.resource, p.description
        FROM roles r
        LEFT JOIN role_permissions rp ON rp.role_id = r.id
        LEFT JOIN permissions p ON p.id = rp.permission_id
        ORDER BY r.name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRoles(rows)
}

type roleRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectRoles(rows roleRows) ([]domain.Role, error) {
	byID := make(map[string]*domain.Role)
	order := make([]string, 0)

	for rows.Next() {
		var (
			role     domain.Role
			permID   *string
			permName *string
			action   *string
			resource *string
			permDesc *string
		)
		if err := rows.Scan(
			&role.ID, &role.Name, &role.Description,
			&permID, &permName, &action, &resource, &permDesc,
		); err != nil {
			return nil, err
		}

		existing, ok := byID[role.ID]
		if !ok {
			existing = &role
			byID[role.ID] = existing
			order = append(order, role.ID)
		}
		if permID != nil {
			perm := domain.Permission{ID: *permID, Action: *action, Resource: *resource}
			if permName != nil {
				perm.Name = *permName
			}
			if permDesc != nil {
				perm.Description = *permDesc
			}
			existing.Permissions = append(existing.Permissions, perm)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Role, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}
