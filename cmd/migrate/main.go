package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/wanderly/tripmate/internal/config"
	"github.com/wanderly/tripmate/internal/logger"
)

func main() {
	_ = godotenv.Load()

	path := flag.String("path", "migrations", "path to migration files")
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	m, err := migrate.New(fmt.Sprintf("file://%s", *path), cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "force":
		version, convErr := strconv.Atoi(flag.Arg(1))
		if convErr != nil {
			log.Fatal("force requires a numeric version", zap.Error(convErr))
		}
		err = m.Force(version)
	case "version":
		v, dirty, vErr := m.Version()
		if vErr != nil && vErr != migrate.ErrNilVersion {
			log.Fatal("failed to read version", zap.Error(vErr))
		}
		log.Info("migration state", zap.Uint("version", v), zap.Bool("dirty", dirty))
		return
	default:
		fmt.Fprintf(os.Stderr, "usage: migrate [-path dir] up|down|force <v>|version\n")
		os.Exit(2)
	}

	if err != nil && err != migrate.ErrNoChange {
		log.Fatal("migration failed", zap.Error(err), zap.String("command", cmd))
	}
	if err == migrate.ErrNoChange {
		log.Info("no schema changes to apply")
		return
	}
	log.Info("migrations applied", zap.String("command", cmd))
}
