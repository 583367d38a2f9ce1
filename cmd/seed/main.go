package main

import (
	"context"
	"errors"
	"log"

	"gigmarket/internal/config"
	"gigmarket/internal/database"
	"gigmarket/internal/domain"
	"gigmarket/internal/domain/listing"
	jwtsvc "gigmarket/internal/pkg/jwt"
	"gigmarket/internal/repository"
	"gigmarket/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

const (
	demoEmail    = "seller@gigmarket.dev"
	demoPassword = "seller123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if config.IsProdLike(cfg.AppEnv) {
		log.Fatal("refusing to seed a production database")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := db.AutoMigrate(&domain.User{}, &listing.Listing{}); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)

	seller, err := users.GetByEmail(ctx, demoEmail)
	if errors.Is(err, repository.ErrUserNotFound) {
		hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal("hash password:", err)
		}
		seller = &domain.User{
			Email:            demoEmail,
			PasswordHash:     string(hash),
			Role:             domain.RoleSeller,
			Username:         "demo_seller",
			FullName:         "Demo Seller",
			Description:      "Logos, brand kits and landing pages.",
			IsProfileInfoSet: true,
		}
		if err := users.Create(ctx, seller); err != nil {
			log.Fatal("create seller:", err)
		}
		log.Printf("Seller created: %s / %s", demoEmail, demoPassword)
	} else if err != nil {
		log.Fatal("lookup seller:", err)
	}

	listings := listing.NewRepository(db)
	existing, err := listings.ListByOwner(ctx, seller.ID)
	if err != nil {
		log.Fatal("list seller listings:", err)
	}
	if len(existing) == 0 {
		sample := &listing.Listing{
			Title:        "Logo design",
			Description:  "A modern logo with three concepts and source files.",
			Category:     "Graphic Design",
			Features:     "Source file, High resolution, Vector file",
			Price:        50,
			ShortDesc:    "Modern minimalist logo",
			DeliveryTime: 3,
			Revisions:    2,
			Images:       []string{storage.PublicURL(cfg.S3.Bucket, cfg.S3.PublicDomain, "sample-logo.png")},
			CreatedByID:  seller.ID,
		}
		if err := listings.Create(ctx, sample); err != nil {
			log.Fatal("create sample listing:", err)
		}
		log.Printf("Sample listing created: id=%d", sample.ID)
	}

	token, err := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL).GenerateToken(seller.ID, string(seller.Role))
	if err != nil {
		log.Fatal("generate token:", err)
	}
	log.Printf("Bearer token for %s:\n%s", demoEmail, token)
}
