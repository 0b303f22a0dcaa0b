package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"marketplace-chat/internal/models"
)

// UserRepo reads the platform's users, roles and user_role tables.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

type userRole struct {
	UserID   int64  `db:"user_id"`
	RoleName string `db:"role_name"`
}

// GetUser loads a user and its role set.
func (r *UserRepo) GetUser(ctx context.Context, userID int64) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT user_id, username, COALESCE(avatar_url, '') AS avatar_url
        FROM users WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}

	roles, err := r.rolesByUser(ctx, []int64{userID})
	if err != nil {
		return models.User{}, err
	}
	user.Roles = roles[userID]
	return user, nil
}

// BulkUsers loads every existing user among ids. Unknown ids are skipped.
func (r *UserRepo) BulkUsers(ctx context.Context, ids []int64) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	users := []models.User{}
	err := r.db.SelectContext(ctx, &users, `SELECT user_id, username, COALESCE(avatar_url, '') AS avatar_url
        FROM users WHERE user_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	roles, err := r.rolesByUser(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Roles = roles[users[i].ID]
	}
	return users, nil
}

func (r *UserRepo) rolesByUser(ctx context.Context, ids []int64) (map[int64][]string, error) {
	var rows []userRole
	err := r.db.SelectContext(ctx, &rows, `SELECT ur.user_id, ro.role_name
        FROM user_role ur JOIN roles ro ON ro.role_id = ur.role_id
        WHERE ur.user_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	roles := make(map[int64][]string, len(ids))
	for _, row := range rows {
		roles[row.UserID] = append(roles[row.UserID], row.RoleName)
	}
	return roles, nil
}

var _ UserDirectory = (*UserRepo)(nil)
