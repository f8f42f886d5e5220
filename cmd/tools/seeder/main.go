package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close(ctx)

	if err := conn.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedGuests(ctx, conn)
	seedVillas(ctx, conn)
	seedPromoCodes(ctx, conn)

	log.Println("Seeding completed successfully!")
}

func seedGuests(ctx context.Context, conn *pgx.Conn) {
	guests := []struct {
		Email     string
		FirstName string
		LastName  string
		Roles     []string
	}{
		{"admin@amarastays.com", "Amara", "Admin", []string{"guest", "admin"}},
		{"sophie@example.com", "Sophie", "Laurent", []string{"guest"}},
		{"marco@example.com", "Marco", "Bianchi", []string{"guest"}},
		{"elena@example.com", "Elena", "Petrova", []string{"guest"}},
	}

	fmt.Println("Seeding Guests...")
	for _, g := range guests {
		hash, err := argon2id.CreateHash("password123", argon2id.DefaultParams)
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		_, err = conn.Exec(ctx, `
			INSERT INTO guests (email, password_hash, first_name, last_name, roles)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (email) DO UPDATE SET roles = EXCLUDED.roles
		`, g.Email, hash, g.FirstName, g.LastName, g.Roles)
		if err != nil {
			log.Fatalf("Failed to seed guest %s: %v", g.Email, err)
		}
	}
}

func seedVillas(ctx context.Context, conn *pgx.Conn) {
	villas := []struct {
		Slug        string
		Name        string
		Description string
		BaseRate    int64
		Bedrooms    int
		Bathrooms   int
		HasPool     bool
		Images      []string
		I18n        string
	}{
		{
			Slug:        "villa-azure",
			Name:        "Villa Azure",
			Description: "Clifftop villa with a private infinity pool overlooking the Aegean.",
			BaseRate:    30000,
			Bedrooms:    4,
			Bathrooms:   3,
			HasPool:     true,
			Images:      []string{"https://cdn.amarastays.com/villas/azure/1.jpg", "https://cdn.amarastays.com/villas/azure/2.jpg"},
			I18n:        `{"fr": {"name": "Villa Azur", "description": "Villa en falaise avec piscine privée."}}`,
		},
		{
			Slug:        "casa-limone",
			Name:        "Casa Limone",
			Description: "Restored farmhouse among the lemon groves, ten minutes from the coast.",
			BaseRate:    18500,
			Bedrooms:    3,
			Bathrooms:   2,
			HasPool:     true,
			Images:      []string{"https://cdn.amarastays.com/villas/limone/1.jpg"},
			I18n:        `{"it": {"name": "Casa Limone", "description": "Casale restaurato tra i limoneti."}}`,
		},
		{
			Slug:        "the-boathouse",
			Name:        "The Boathouse",
			Description: "Two-bedroom retreat with a private jetty on the lake.",
			BaseRate:    12000,
			Bedrooms:    2,
			Bathrooms:   1,
			HasPool:     false,
			Images:      []string{"https://cdn.amarastays.com/villas/boathouse/1.jpg"},
			I18n:        `{}`,
		},
		{
			Slug:        "finca-alba",
			Name:        "Finca Alba",
			Description: "Whitewashed finca with mountain views and a saltwater pool.",
			BaseRate:    22000,
			Bedrooms:    5,
			Bathrooms:   4,
			HasPool:     true,
			Images:      []string{"https://cdn.amarastays.com/villas/alba/1.jpg", "https://cdn.amarastays.com/villas/alba/2.jpg"},
			I18n:        `{"es": {"name": "Finca Alba", "description": "Finca encalada con vistas a la montaña."}}`,
		},
	}

	fmt.Println("Seeding Villas...")
	for _, v := range villas {
		_, err := conn.Exec(ctx, `
			INSERT INTO villas (slug, name, description, base_rate, bedrooms, bathrooms, has_pool, images, i18n)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (slug) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				base_rate = EXCLUDED.base_rate,
				updated_at = now()
		`, v.Slug, v.Name, v.Description, v.BaseRate, v.Bedrooms, v.Bathrooms, v.HasPool, v.Images, v.I18n)
		if err != nil {
			log.Fatalf("Failed to seed villa %s: %v", v.Slug, err)
		}
	}
}

func seedPromoCodes(ctx context.Context, conn *pgx.Conn) {
	promos := []struct {
		Code       string
		Kind       string
		PercentBps *int
		Amount     *int64
	}{
		{"WELCOME20", "percent", ptr(2000), nil},
		{"SUMMER50", "fixed", nil, ptr(int64(5000))},
		{"WINTER10", "percent", ptr(1000), nil},
	}

	fmt.Println("Seeding Promo Codes...")
	for _, p := range promos {
		_, err := conn.Exec(ctx, `
			INSERT INTO promo_codes (code, kind, percent_bps, amount, active)
			VALUES ($1, $2, $3, $4, true)
			ON CONFLICT (code) DO UPDATE SET
				kind = EXCLUDED.kind,
				percent_bps = EXCLUDED.percent_bps,
				amount = EXCLUDED.amount,
				active = true
		`, p.Code, p.Kind, p.PercentBps, p.Amount)
		if err != nil {
			log.Fatalf("Failed to seed promo %s: %v", p.Code, err)
		}
	}
}

func ptr[T any](v T) *T { return &v }
