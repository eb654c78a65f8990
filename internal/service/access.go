// access.go - сервис контроля доступа: личность вызывающего, роли, лимиты запросов.
//
// Операции чтения (ValidateAuth, HasRole, ValidateAdminAuth, ValidateSupportAuth,
// GetUserRateLimit, IsServiceAccount) не возвращают ошибок: любой сбой сводится
// к наименее привилегированному ответу. SetUserRole возвращает ошибку хранилища,
// RefreshUserToken - ErrUnauthenticated или непрозрачную ErrInternal.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/guillefidelio/replybot2025-sub002/internal/domain/model"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/ratelimit"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/rbac"
	"github.com/guillefidelio/replybot2025-sub002/internal/repository"
)

// Имена custom claims, которые пишет сервис.
const (
	ClaimRole             = "role"
	ClaimTokenRefreshedAt = "token_refreshed_at"
)

// serviceAccountMarker - единственное значение заголовка, признающее вызов служебным.
const serviceAccountMarker = "true"

// Результаты проверок для метрики ac_access_checks_total.
const (
	resultAllow = "allow"
	resultDeny  = "deny"
	resultError = "error"
)

var accessChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ac_access_checks_total",
	Help: "Количество проверок доступа по типу проверки и результату.",
}, []string{"check", "result"})

// UserDirectory - справочник пользователей.
// GetUser возвращает repository.ErrNotFound, если записи нет.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*model.UserRecord, error)
	UpdateRole(ctx context.Context, id string, role rbac.Role) error
}

// IdentityProvider - хранилище custom claims провайдера личности.
// SetCustomClaims сливает переданные claims с существующими.
type IdentityProvider interface {
	GetCustomClaims(ctx context.Context, id string) (map[string]string, error)
	SetCustomClaims(ctx context.Context, id string, claims map[string]string) error
}

// RefreshResult - ответ RefreshUserToken.
type RefreshResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UserProfile - сводка по вызывающему для /auth/me.
type UserProfile struct {
	UID           string
	Email         string
	Username      string
	Role          rbac.Role
	Plan          ratelimit.Plan
	RateLimit     ratelimit.Policy
	RoleUpdatedAt *time.Time
}

// AccessService - проверки доступа поверх справочника и провайдера личности.
// Собственного изменяемого состояния не хранит.
type AccessService struct {
	dir                  UserDirectory
	idp                  IdentityProvider
	serviceAccountHeader string
	now                  func() time.Time
	logger               *slog.Logger
}

// NewAccessService создаёт сервис контроля доступа.
// serviceAccountHeader - имя заголовка служебного вызова; пустая строка отключает проверку.
func NewAccessService(
	dir UserDirectory,
	idp IdentityProvider,
	serviceAccountHeader string,
	logger *slog.Logger,
) *AccessService {
	return &AccessService{
		dir:                  dir,
		idp:                  idp,
		serviceAccountHeader: serviceAccountHeader,
		now:                  time.Now,
		logger:               logger.With(slog.String("component", "access_service")),
	}
}

// identity извлекает UID из контекста запроса без побочных эффектов.
func identity(rc *model.RequestContext) (string, bool) {
	if rc == nil || rc.Auth == nil || rc.Auth.UID == "" {
		return "", false
	}
	return rc.Auth.UID, true
}

// ValidateAuth возвращает UID проверенной личности.
// Подпись токена уже проверена транспортным слоем и здесь не перепроверяется.
// Паника при извлечении логируется и даёт ("", false).
func (s *AccessService) ValidateAuth(rc *model.RequestContext) (uid string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Сбой извлечения личности из контекста",
				slog.Any("panic", r),
			)
			accessChecksTotal.WithLabelValues("auth", resultError).Inc()
			uid, ok = "", false
		}
	}()

	uid, ok = identity(rc)
	if !ok {
		accessChecksTotal.WithLabelValues("auth", resultDeny).Inc()
		return "", false
	}
	accessChecksTotal.WithLabelValues("auth", resultAllow).Inc()
	return uid, true
}

// HasRole проверяет, покрывает ли роль пользователя требуемую роль.
// Отсутствие записи или сбой справочника дают false.
func (s *AccessService) HasRole(ctx context.Context, uid string, required rbac.Role) bool {
	check := "role_" + string(required)

	if uid == "" {
		accessChecksTotal.WithLabelValues(check, resultDeny).Inc()
		return false
	}

	rec, err := s.dir.GetUser(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			accessChecksTotal.WithLabelValues(check, resultDeny).Inc()
			return false
		}
		s.logger.Warn("Ошибка чтения записи пользователя при проверке роли",
			slog.String("user_id", uid),
			slog.String("required_role", string(required)),
			slog.String("error", err.Error()),
		)
		accessChecksTotal.WithLabelValues(check, resultError).Inc()
		return false
	}

	if !rbac.Subsumes(rec.Role, required) {
		accessChecksTotal.WithLabelValues(check, resultDeny).Inc()
		return false
	}
	accessChecksTotal.WithLabelValues(check, resultAllow).Inc()
	return true
}

// ValidateAdminAuth возвращает UID, если вызывающий аутентифицирован и имеет роль admin.
func (s *AccessService) ValidateAdminAuth(ctx context.Context, rc *model.RequestContext) (string, bool) {
	return s.validateWithRole(ctx, rc, rbac.RoleAdmin)
}

// ValidateSupportAuth возвращает UID для ролей support и admin.
func (s *AccessService) ValidateSupportAuth(ctx context.Context, rc *model.RequestContext) (string, bool) {
	return s.validateWithRole(ctx, rc, rbac.RoleSupport)
}

func (s *AccessService) validateWithRole(ctx context.Context, rc *model.RequestContext, role rbac.Role) (string, bool) {
	uid, ok := s.ValidateAuth(rc)
	if !ok {
		return "", false
	}
	if !s.HasRole(ctx, uid, role) {
		return "", false
	}
	return uid, true
}

// SetUserRole записывает роль в claims провайдера и в справочник.
// Запись не атомарна: при сбое справочника после записи claims состояние
// расходится до повторного вызова. Операция идемпотентна, повтор безопасен.
func (s *AccessService) SetUserRole(ctx context.Context, uid string, role rbac.Role) error {
	if !rbac.IsValidRole(string(role)) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if uid == "" {
		return fmt.Errorf("%w: пустой идентификатор", ErrNotFound)
	}

	if _, err := s.dir.GetUser(ctx, uid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, uid)
		}
		return fmt.Errorf("чтение записи пользователя: %w", err)
	}

	if err := s.idp.SetCustomClaims(ctx, uid, map[string]string{ClaimRole: string(role)}); err != nil {
		return fmt.Errorf("запись роли в claims: %w", err)
	}

	if err := s.dir.UpdateRole(ctx, uid, role); err != nil {
		s.logger.Error("Роль записана в claims, но не в справочник: требуется повтор",
			slog.String("user_id", uid),
			slog.String("role", string(role)),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, uid)
		}
		return fmt.Errorf("запись роли в справочник: %w", err)
	}

	s.logger.Info("Роль пользователя изменена",
		slog.String("user_id", uid),
		slog.String("role", string(role)),
	)
	return nil
}

// RefreshUserToken добавляет в claims новую отметку обновления, чтобы
// закэшированные токены считались устаревшими. Отметка строго возрастает.
func (s *AccessService) RefreshUserToken(ctx context.Context, rc *model.RequestContext) (*RefreshResult, error) {
	uid, ok := s.ValidateAuth(rc)
	if !ok {
		return nil, ErrUnauthenticated
	}

	claims, err := s.idp.GetCustomClaims(ctx, uid)
	if err != nil {
		s.logger.Error("Ошибка чтения claims при обновлении токена",
			slog.String("user_id", uid),
			slog.String("error", err.Error()),
		)
		return nil, ErrInternal
	}

	marker := s.now().UnixMilli()
	if prev, err := strconv.ParseInt(claims[ClaimTokenRefreshedAt], 10, 64); err == nil && prev >= marker {
		marker = prev + 1
	}

	merged := make(map[string]string, len(claims)+1)
	maps.Copy(merged, claims)
	merged[ClaimTokenRefreshedAt] = strconv.FormatInt(marker, 10)

	if err := s.idp.SetCustomClaims(ctx, uid, merged); err != nil {
		s.logger.Error("Ошибка записи claims при обновлении токена",
			slog.String("user_id", uid),
			slog.String("error", err.Error()),
		)
		return nil, ErrInternal
	}

	s.logger.Debug("Токен пользователя помечен к обновлению",
		slog.String("user_id", uid),
		slog.Int64("marker", marker),
	)
	return &RefreshResult{Success: true, Message: "Token refreshed"}, nil
}

// IsServiceAccount признаёт вызов служебным, если личности нет, а заголовок
// serviceAccountHeader равен ровно "true". Проверка не криптографическая и
// допустима только для трафика, уже ограниченного периметром.
func (s *AccessService) IsServiceAccount(rc *model.RequestContext) bool {
	if rc == nil || s.serviceAccountHeader == "" {
		accessChecksTotal.WithLabelValues("service_account", resultDeny).Inc()
		return false
	}
	if _, authed := identity(rc); authed {
		accessChecksTotal.WithLabelValues("service_account", resultDeny).Inc()
		return false
	}
	if rc.Header.Get(s.serviceAccountHeader) != serviceAccountMarker {
		accessChecksTotal.WithLabelValues("service_account", resultDeny).Inc()
		return false
	}
	accessChecksTotal.WithLabelValues("service_account", resultAllow).Inc()
	return true
}

// GetUserRateLimit возвращает лимит по тарифу пользователя.
// Нет записи или сбой справочника - лимит free.
func (s *AccessService) GetUserRateLimit(ctx context.Context, uid string) ratelimit.Policy {
	if uid == "" {
		return ratelimit.DefaultPolicy()
	}

	rec, err := s.dir.GetUser(ctx, uid)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("Ошибка чтения записи пользователя для лимита",
				slog.String("user_id", uid),
				slog.String("error", err.Error()),
			)
		}
		return ratelimit.DefaultPolicy()
	}

	return ratelimit.PolicyFor(rec.Plan)
}

// Profile собирает сводку по аутентифицированному пользователю.
// nil, если личности нет. Отсутствие записи даёт роль user и план free.
func (s *AccessService) Profile(ctx context.Context, auth *model.AuthInfo) *UserProfile {
	if auth == nil || auth.UID == "" {
		return nil
	}

	p := &UserProfile{
		UID:      auth.UID,
		Email:    auth.Email,
		Username: auth.Username,
		Role:     rbac.RoleUser,
		Plan:     ratelimit.PlanFree,
	}

	rec, err := s.dir.GetUser(ctx, auth.UID)
	switch {
	case err == nil:
		p.Role = rec.Role
		p.Plan = rec.Plan
		p.RoleUpdatedAt = rec.RoleUpdatedAt
		if p.Email == "" {
			p.Email = rec.Email
		}
	case !errors.Is(err, repository.ErrNotFound):
		s.logger.Warn("Ошибка чтения записи пользователя для профиля",
			slog.String("user_id", auth.UID),
			slog.String("error", err.Error()),
		)
	}

	p.RateLimit = ratelimit.PolicyFor(p.Plan)
	return p
}

// LookupUser возвращает сводку по записи пользователя uid для службы поддержки.
// ErrNotFound, если записи нет. Права вызывающего проверяет вызывающий код.
func (s *AccessService) LookupUser(ctx context.Context, uid string) (*UserProfile, error) {
	rec, err := s.dir.GetUser(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, uid)
		}
		return nil, fmt.Errorf("чтение записи пользователя: %w", err)
	}

	return &UserProfile{
		UID:           rec.ID,
		Email:         rec.Email,
		Role:          rec.Role,
		Plan:          rec.Plan,
		RateLimit:     ratelimit.PolicyFor(rec.Plan),
		RoleUpdatedAt: rec.RoleUpdatedAt,
	}, nil
}
