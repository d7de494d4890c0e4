package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleargate-io/cleargate/internal/server"
	"github.com/cleargate-io/cleargate/modules/permission/infrastructure/persistence"
	"github.com/cleargate-io/cleargate/modules/permission/services"
	"github.com/cleargate-io/cleargate/pkg/authz"
)

func main() {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	mode, err := authz.ModeFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	gate, err := authz.NewAuthorizer(
		getenvDefault("AUTHZ_MODEL_PATH", "config/authz/model.conf"),
		getenvDefault("AUTHZ_POLICY_PATH", "config/authz/policy.csv"),
		mode,
	)
	if err != nil {
		log.Fatal(err)
	}

	policies := persistence.NewPolicyPGStore(pool)
	users := persistence.NewUserPGStore(pool)

	mux := server.NewMux(server.Deps{
		Permissions: services.NewPermissionService(policies, users, nil),
		Versions:    services.NewVersionService(policies),
		Policies:    policies,
		Gate:        gate,
		SeedDir:     getenvDefault("POLICY_SEED_DIR", "config/policies"),
	})

	log.Printf("listening on %s (authz mode %s)", addr, mode)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

func getenvDefault(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
