// Command seeduser creates or resets the bootstrap admin account.
//
//	SEED_USERNAME=admin SEED_PASSWORD=secret go run ./cmd/seeduser
package main

import (
	"context"
	"os"
	"strings"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/config"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/infra"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	username := strings.ToLower(envOr("SEED_USERNAME", "admin"))
	password := os.Getenv("SEED_PASSWORD")
	name := envOr("SEED_NAME", "Administrator")
	if len(password) < 6 {
		log.Fatal().Msg("SEED_PASSWORD must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	res := db.WithContext(context.Background()).Exec(`
		INSERT INTO users (name, username, password_hash, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, true, now(), now())
		ON CONFLICT (username) DO UPDATE
		SET password_hash = EXCLUDED.password_hash,
		    name = EXCLUDED.name,
		    role = EXCLUDED.role,
		    is_active = true,
		    updated_at = now()
	`, name, username, string(hash), model.RoleAdmin)
	if res.Error != nil {
		log.Fatal().Err(res.Error).Msg("upsert admin")
	}
	log.Info().Str("username", username).Msg("admin user created or reset")
}
