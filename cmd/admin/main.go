package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"craftfolio/internal/auth"
	"craftfolio/internal/config"
	"craftfolio/internal/database"
)

// stockTemplates is the catalog seeded on first run. Seeding is idempotent by
// template name so reruns never duplicate rows.
var stockTemplates = []database.Template{
	{Name: "Минималистичный", Config: templateConfig("minimal", "single-column", "#FFFFFF", "#333333")},
	{Name: "Современный", Config: templateConfig("modern", "two-column", "#1A1A2E", "#E94560")},
	{Name: "Креативный", Config: templateConfig("creative", "grid", "#F9F7F7", "#3F72AF")},
	{Name: "Профессиональный", Config: templateConfig("professional", "sidebar", "#F5F5F5", "#2C3E50")},
	{Name: "Фотограф", Config: templateConfig("photographer", "masonry", "#000000", "#FFFFFF")},
	{Name: "Разработчик", Config: templateConfig("developer", "terminal", "#0D1117", "#58A6FF")},
}

func templateConfig(style, layout, background, accent string) datatypes.JSON {
	return datatypes.JSON([]byte(fmt.Sprintf(
		`{"style": %q, "layout": %q, "colors": {"background": %q, "accent": %q}}`,
		style, layout, background, accent,
	)))
}

func main() {
	email := flag.String("email", "", "admin account email")
	username := flag.String("username", "", "admin account username")
	flag.Parse()

	if strings.TrimSpace(*email) == "" || strings.TrimSpace(*username) == "" {
		log.Fatalf("usage: admin --email <email> --username <username>")
	}

	cfg := config.MustLoad()

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	if err := seedTemplates(db); err != nil {
		log.Fatalf("seed templates: %v", err)
	}

	if err := ensureAdmin(db, strings.ToLower(strings.TrimSpace(*email)), strings.TrimSpace(*username)); err != nil {
		log.Fatalf("ensure admin: %v", err)
	}
}

func seedTemplates(db *gorm.DB) error {
	for _, tpl := range stockTemplates {
		var existing database.Template
		err := db.Where("name = ?", tpl.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		tpl.IsActive = true
		if err := db.Create(&tpl).Error; err != nil {
			return fmt.Errorf("create template %q: %w", tpl.Name, err)
		}
		log.Printf("seeded template %q", tpl.Name)
	}
	return nil
}

// ensureAdmin creates the account with a random one-time password, or
// promotes an existing account. The password is printed exactly once and
// never stored in the clear.
func ensureAdmin(db *gorm.DB, email, username string) error {
	var user database.User
	err := db.Where("email = ?", email).First(&user).Error
	if err == nil {
		if user.IsAdmin && user.IsActive {
			log.Printf("admin %s already present", email)
			return nil
		}
		if err := db.Model(&user).Updates(map[string]any{"is_admin": true, "is_active": true}).Error; err != nil {
			return err
		}
		log.Printf("promoted %s to admin", email)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	password, err := randomPassword()
	if err != nil {
		return fmt.Errorf("generate password: %w", err)
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user = database.User{
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		IsAdmin:      true,
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}

	fmt.Printf("admin account created\n  email:    %s\n  username: %s\n  password: %s\n", email, username, password)
	fmt.Println("store this password now; it will not be shown again")
	return nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
