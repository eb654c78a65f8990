package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/guillefidelio/replybot2025-sub002/internal/domain/model"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/ratelimit"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/rbac"
)

// UserRepository - справочник пользователей (таблица users).
// Записи создаются при регистрации аккаунта, здесь не удаляются.
type UserRepository interface {
	// Create создаёт запись пользователя. ErrConflict, если ID занят.
	Create(ctx context.Context, u *model.UserRecord) error
	// GetUser возвращает запись по ID. ErrNotFound, если записи нет.
	GetUser(ctx context.Context, id string) (*model.UserRecord, error)
	// UpdateRole меняет роль, role_updated_at выставляет сервер БД.
	UpdateRole(ctx context.Context, id string, role rbac.Role) error
	// UpdatePlan меняет тарифный план.
	UpdatePlan(ctx context.Context, id string, plan ratelimit.Plan) error
}

// userRepo - реализация UserRepository.
type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, email, role, subscription_plan, role_updated_at, created_at, updated_at`

func (r *userRepo) Create(ctx context.Context, u *model.UserRecord) error {
	query := `
		INSERT INTO users (id, email, role, subscription_plan)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		u.ID, u.Email, nullString(string(u.Role)), nullString(string(u.Plan)),
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) GetUser(ctx context.Context, id string) (*model.UserRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	var (
		u          model.UserRecord
		role, plan *string
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Email, &role, &plan,
		&u.RoleUpdatedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}

	u.Role = rbac.RoleOrDefault(deref(role))
	u.Plan = ratelimit.PlanOrDefault(deref(plan))
	return &u, nil
}

func (r *userRepo) UpdateRole(ctx context.Context, id string, role rbac.Role) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET role = $2, role_updated_at = NOW(), updated_at = NOW()
		WHERE id = $1`, id, string(role))
	if err != nil {
		return fmt.Errorf("ошибка обновления роли: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) UpdatePlan(ctx context.Context, id string, plan ratelimit.Plan) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET subscription_plan = $2, updated_at = NOW()
		WHERE id = $1`, id, string(plan))
	if err != nil {
		return fmt.Errorf("ошибка обновления плана: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// nullString превращает пустую строку в NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
