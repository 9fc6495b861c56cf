package main

import (
	"errors"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ake144/e-tutor/internal/logging"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	logging.Setup("e-tutor-migrate", os.Getenv("APP_ENV"))

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		fatal("DB_URL environment variable is required", errors.New("missing DB_URL"))
	}

	migrationsPath, err := findMigrationsDir()
	if err != nil {
		fatal("migrations directory not found", err)
	}

	m, err := migrate.New("file://"+migrationsPath, dbURL)
	if err != nil {
		fatal("failed to open migrator", err)
	}
	defer m.Close()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatal("migration up failed", err)
		}
	case "down":
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatal("migration down failed", err)
		}
	case "force":
		if len(os.Args) < 3 {
			fatal("usage: migrate force <version>", errors.New("missing version"))
		}
		version, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fatal("invalid version", err)
		}
		if err := m.Force(version); err != nil {
			fatal("migration force failed", err)
		}
	case "version":
	default:
		fatal("unknown command", errors.New(cmd))
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		fatal("failed to read schema version", err)
	}
	slog.Info("migration finished", "command", cmd, "version", version, "dirty", dirty)
}

func findMigrationsDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	candidates := []string{}
	current := cwd
	for i := 0; i < 6; i++ {
		candidates = append(candidates, filepath.Join(current, "migrations"))
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		candidates = append(candidates,
			filepath.Join(exeDir, "migrations"),
			filepath.Join(exeDir, "..", "migrations"),
		)
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return filepath.Abs(candidate)
		}
	}
	return "", os.ErrNotExist
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
