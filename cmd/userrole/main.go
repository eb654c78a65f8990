// userrole - операторская утилита: назначение роли и тарифного плана
// пользователю Access Module. Роль пишется через AccessService.SetUserRole
// (claims Keycloak + справочник), план только в справочник.
// Конфигурация та же, что у access-module (переменные AC_*).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/guillefidelio/replybot2025-sub002/internal/config"
	"github.com/guillefidelio/replybot2025-sub002/internal/database"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/ratelimit"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/rbac"
	"github.com/guillefidelio/replybot2025-sub002/internal/keycloak"
	"github.com/guillefidelio/replybot2025-sub002/internal/repository"
	"github.com/guillefidelio/replybot2025-sub002/internal/service"
)

// options - разобранные аргументы командной строки.
type options struct {
	userID string
	role   rbac.Role
	plan   ratelimit.Plan
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("userrole", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var idFlag, roleFlag, planFlag string
	fs.StringVar(&idFlag, "id", "", "ID пользователя в Keycloak (sub)")
	fs.StringVar(&roleFlag, "role", "", "роль: user, support, admin")
	fs.StringVar(&planFlag, "plan", "", "тарифный план: free, basic, premium, enterprise (необязательно)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts := &options{userID: strings.TrimSpace(idFlag)}
	if opts.userID == "" {
		return nil, errors.New("-id обязателен")
	}

	role := strings.ToLower(strings.TrimSpace(roleFlag))
	plan := strings.ToLower(strings.TrimSpace(planFlag))
	if role == "" && plan == "" {
		return nil, errors.New("нужен хотя бы один из -role, -plan")
	}

	if role != "" {
		r, ok := rbac.ParseRole(role)
		if !ok {
			return nil, fmt.Errorf("неизвестная роль %q", role)
		}
		opts.role = r
	}
	if plan != "" {
		p, ok := ratelimit.ParsePlan(plan)
		if !ok {
			return nil, fmt.Errorf("неизвестный план %q", plan)
		}
		opts.plan = p
	}
	return opts, nil
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		exitWithError(err)
	}

	cfg, err := config.Load()
	if err != nil {
		exitWithError(fmt.Errorf("конфигурация: %w", err))
	}
	logger := config.SetupLogger(cfg).With(slog.String("cmd", "userrole"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		exitWithError(err)
	}
	defer pool.Close()

	httpClient, err := keycloak.NewHTTPClient(cfg.KeycloakCACert, cfg.KeycloakTLSSkipVerify, 10*time.Second)
	if err != nil {
		exitWithError(err)
	}
	kcClient := keycloak.New(
		cfg.KeycloakURL, cfg.KeycloakRealm,
		cfg.KeycloakClientID, cfg.KeycloakClientSecret,
		httpClient, logger,
	)

	userRepo := repository.NewUserRepository(pool)
	accessSvc := service.NewAccessService(userRepo, kcClient, cfg.ServiceAccountHeader, logger)

	if opts.role != "" {
		if err := accessSvc.SetUserRole(ctx, opts.userID, opts.role); err != nil {
			exitWithError(fmt.Errorf("назначение роли: %w", err))
		}
		fmt.Printf("Пользователю %s назначена роль %s\n", opts.userID, opts.role)
	}

	if opts.plan != "" {
		if err := userRepo.UpdatePlan(ctx, opts.userID, opts.plan); err != nil {
			exitWithError(fmt.Errorf("назначение плана: %w", err))
		}
		p := ratelimit.PolicyFor(opts.plan)
		fmt.Printf("Пользователю %s назначен план %s (%d запросов / %d мс)\n",
			opts.userID, opts.plan, p.Requests, p.WindowMs())
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
