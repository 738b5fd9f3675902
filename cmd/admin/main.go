// Command admin runs operator tasks against the auth database.
//
//	admin create-superuser [-d dsn]
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/admin"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/password"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] != "create-superuser" {
		fmt.Fprintln(os.Stderr, "usage: admin create-superuser [flags]")
		os.Exit(2)
	}
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	db, err := repomanager.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	hasher, err := password.NewArgon2(password.Params{
		Memory:      cfg.Argon2Memory,
		Time:        cfg.Argon2Time,
		Parallelism: cfg.Argon2Parallelism,
	})
	if err != nil {
		return err
	}

	users := services.NewUserService(db, dbx.NewTransactor(db, nil), repos,
		services.NewSignatureRegistry(repos), hasher, logger)

	return admin.CreateSuperuser(ctx, users, bufio.NewReader(os.Stdin), os.Stdout)
}
