// Package main seeds the Supabase project with advisor profiles and starting
// credit grants. Intended for development and staging environments.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/astrovia/backend/internal/app/domain/account"
	"github.com/astrovia/backend/internal/app/storage/supabasestore"
	"github.com/astrovia/backend/internal/config"
	"github.com/astrovia/backend/supabase/client"
)

type seedFile struct {
	Advisors []struct {
		UserID      string   `yaml:"user_id"`
		DisplayName string   `yaml:"display_name"`
		Bio         string   `yaml:"bio"`
		AvatarURL   string   `yaml:"avatar_url"`
		Specialties []string `yaml:"specialties"`
		RatePerChat int64    `yaml:"rate_per_chat"`
		Available   bool     `yaml:"available"`
	} `yaml:"advisors"`
	Grants []struct {
		UserID      string `yaml:"user_id"`
		Amount      int64  `yaml:"amount"`
		Description string `yaml:"description"`
	} `yaml:"grants"`
}

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to config file")
		seedPath   = flag.String("seed", "./scripts/seed.yaml", "Path to seed data file")
		envFile    = flag.String("env", ".env", "Path to .env file")
	)
	flag.Parse()

	_ = godotenv.Load(*envFile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	data, err := os.ReadFile(filepath.Clean(*seedPath))
	if err != nil {
		log.Fatalf("read seed file: %v", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		log.Fatalf("parse seed file: %v", err)
	}

	supa, err := client.New(client.Config{
		URL:        cfg.Supabase.URL,
		AnonKey:    cfg.Supabase.AnonKey,
		ServiceKey: cfg.Supabase.ServiceKey,
	})
	if err != nil {
		log.Fatalf("create supabase client: %v", err)
	}
	store := supabasestore.New(supa)

	ctx := context.Background()

	for _, a := range seed.Advisors {
		if _, err := store.UpsertAdvisorProfile(ctx, account.AdvisorProfile{
			UserID:      a.UserID,
			DisplayName: a.DisplayName,
			Bio:         a.Bio,
			AvatarURL:   a.AvatarURL,
			Specialties: a.Specialties,
			RatePerChat: a.RatePerChat,
			Available:   a.Available,
		}); err != nil {
			log.Fatalf("seed advisor %s: %v", a.UserID, err)
		}
		log.Printf("seeded advisor %s", a.UserID)
	}

	for _, g := range seed.Grants {
		if _, err := store.GrantCredits(ctx, g.UserID, g.Amount, g.Description); err != nil {
			log.Fatalf("grant credits to %s: %v", g.UserID, err)
		}
		log.Printf("granted %d credits to %s", g.Amount, g.UserID)
	}

	log.Println("seeding complete")
}
