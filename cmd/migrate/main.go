package main

import (
	"errors"
	"flag"
	"fmt"
	"net/url"

	"healthcare-booking-service/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	dir := flag.String("path", "migrations", "directory holding the migration files")
	steps := flag.Int("steps", 0, "apply N steps (negative rolls back); 0 with up/down means all")
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	m, err := migrate.New("file://"+*dir, databaseURL(cfg.DB))
	if err != nil {
		logrus.Fatalf("Failed to open migrations: %v", err)
	}
	defer m.Close()

	switch {
	case *steps != 0:
		err = m.Steps(*steps)
	case cmd == "up":
		err = m.Up()
	case cmd == "down":
		err = m.Down()
	case cmd == "version":
		version, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			logrus.Fatalf("Failed to read version: %v", verr)
		}
		logrus.Infof("Schema version %d (dirty=%t)", version, dirty)
		return
	default:
		logrus.Fatalf("Unknown command %q, expected up, down or version", cmd)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logrus.Fatalf("Migration %s failed: %v", cmd, err)
	}
	logrus.Infof("Migration %s complete", cmd)
}

func databaseURL(cfg config.DBConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Path:     cfg.Name,
		RawQuery: url.Values{"sslmode": []string{cfg.SSLMode}}.Encode(),
	}
	return u.String()
}
