package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/simandok/be-documents/internal/apperrors"
	"github.com/simandok/be-documents/internal/database"
)

// UserRepository looks up directory entries and their hierarchy levels.
// Account provisioning is owned by the identity service; this side only
// reads.
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, full_name, position, hierarchy_level`

// GetByID retrieves one user.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u := &User{}
	err := r.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.FullName, &u.Position, &u.HierarchyLevel)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("user", id)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByIDs retrieves a batch of users keyed by ID. Missing IDs are
// simply absent from the result; callers decide whether that is fatal.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get users")
	}
	defer rows.Close()

	users := make(map[string]*User, len(ids))
	for rows.Next() {
		u := &User{}
		if err := rows.Scan(&u.ID, &u.FullName, &u.Position, &u.HierarchyLevel); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan user")
		}
		users[u.ID] = u
	}
	return users, nil
}
