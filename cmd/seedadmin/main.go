// Command seedadmin creates the administrator account from ADMIN_EMAIL and
// ADMIN_PASSWORD when it does not exist yet.
package main

import (
	"context"
	"log"
	"time"

	"placegrad/internal/auth"
	"placegrad/internal/config"
	"placegrad/internal/database"
)

// noMail satisfies auth.Mailer; seeding never sends email.
type noMail struct{}

func (noMail) SendOTP(context.Context, string, string, string) error           { return nil }
func (noMail) SendPasswordReset(context.Context, string, string, string) error { return nil }

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		log.Fatal("ADMIN_EMAIL or ADMIN_PASSWORD not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := database.ConnectMongoDB(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("Error seeding admin user: %v", err)
	}
	defer client.Disconnect(context.Background())

	users := database.NewUserStore(database.GetUserCollection(client, cfg.MongoDB))
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Error seeding admin user: %v", err)
	}

	tokens, err := auth.NewTokenIssuer([]byte(cfg.JWTSecret))
	if err != nil {
		log.Fatalf("Error seeding admin user: %v", err)
	}
	svc := auth.NewService(users, noMail{}, tokens, auth.WithHasher(auth.NewBcryptHasher(cfg.BcryptCost)))

	created, err := svc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("Error seeding admin user: %v", err)
	}
	if created {
		log.Printf("Admin user created: %s", cfg.AdminEmail)
		return
	}
	log.Printf("Admin user already exists: %s", cfg.AdminEmail)
}
