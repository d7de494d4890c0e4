package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleargate-io/cleargate/modules/permission/domain/types"
	"github.com/cleargate-io/cleargate/modules/permission/infrastructure/persistence"
	"github.com/cleargate-io/cleargate/modules/permission/services"
)

func main() {
	if len(os.Args) < 2 {
		fatalf("usage: policytool <seed|new-version|rollback|list> [args]")
	}

	switch os.Args[1] {
	case "seed":
		seed(os.Args[2:])
	case "new-version":
		newVersion(os.Args[2:])
	case "rollback":
		rollback(os.Args[2:])
	case "list":
		list(os.Args[2:])
	default:
		fatalf("unknown subcommand: %s", os.Args[1])
	}
}

func seed(args []string) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var url, dir, actor string
	fs.StringVar(&url, "url", "", "postgres connection string")
	fs.StringVar(&dir, "dir", "config/policies", "seed documents directory")
	fs.StringVar(&actor, "actor", "system", "user id recorded as creator")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}

	docs, err := services.LoadSeedDocuments(dir)
	if err != nil {
		fatal(err)
	}

	ctx, cancel, svc := versionService(url)
	defer cancel()

	created, err := svc.Initialize(ctx, docs, actor)
	if err != nil {
		fatal(err)
	}
	for _, model := range created {
		fmt.Printf("seeded %s\n", model)
	}
	fmt.Printf("%d of %d seeds created\n", len(created), len(docs))
}

func newVersion(args []string) {
	fs := flag.NewFlagSet("new-version", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var url, model, file, actor, status string
	fs.StringVar(&url, "url", "", "postgres connection string")
	fs.StringVar(&model, "model", "", "model name")
	fs.StringVar(&file, "changes", "", "path to a JSON changeset file")
	fs.StringVar(&actor, "actor", "system", "user id recorded in the changelog")
	fs.StringVar(&status, "status", "", "status of the new version (default active)")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}
	if model == "" || file == "" {
		fatalf("missing --model or --changes")
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		fatal(err)
	}
	var changes services.PolicyChangeset
	if err := json.Unmarshal(raw, &changes); err != nil {
		fatal(err)
	}

	ctx, cancel, svc := versionService(url)
	defer cancel()

	doc, err := svc.CreateNewVersion(ctx, model, changes, actor, types.PolicyStatus(status))
	if err != nil {
		fatal(err)
	}
	fmt.Printf("%s now at version %d (%s)\n", doc.Model, doc.Version, doc.Status)
}

func rollback(args []string) {
	fs := flag.NewFlagSet("rollback", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var url, model, actor, targetStatus, newStatus string
	fs.StringVar(&url, "url", "", "postgres connection string")
	fs.StringVar(&model, "model", "", "model name")
	fs.StringVar(&actor, "actor", "system", "user id recorded in the changelog")
	fs.StringVar(&targetStatus, "target-status", "", "status for the abandoned version (default archived)")
	fs.StringVar(&newStatus, "new-status", "", "status for the restored version (default active)")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}
	if model == "" {
		fatalf("missing --model")
	}

	ctx, cancel, svc := versionService(url)
	defer cancel()

	doc, err := svc.Rollback(ctx, model, types.PolicyStatus(targetStatus), types.PolicyStatus(newStatus), actor)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("%s rolled back to version %d (%s)\n", doc.Model, doc.Version, doc.Status)
}

func list(args []string) {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var url string
	fs.StringVar(&url, "url", "", "postgres connection string")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}

	ctx, cancel, svc := versionService(url)
	defer cancel()

	docs, err := svc.ListDocuments(ctx)
	if err != nil {
		fatal(err)
	}
	for _, doc := range docs {
		active := " "
		if doc.IsActive {
			active = "*"
		}
		tenant := doc.TenantID
		if tenant == "" {
			tenant = "global"
		}
		fmt.Printf("%s %-20s v%-3d %-8s %s\n", active, doc.Model, doc.Version, doc.Status, tenant)
	}
}

func versionService(url string) (context.Context, context.CancelFunc, *services.VersionService) {
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		fatalf("missing --url (or DATABASE_URL)")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		cancel()
		fatal(err)
	}
	return ctx, func() { pool.Close(); cancel() }, services.NewVersionService(persistence.NewPolicyPGStore(pool))
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
