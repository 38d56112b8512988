package portfolio

import (
	"context"
	"testing"

	"gorm.io/datatypes"

	"craftfolio/internal/database"
)

func TestGetOrCreateDefaults(t *testing.T) {
	db := newTestDB(t)
	user := database.User{Email: "a@example.com", Username: "a", PasswordHash: "x", IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	store := NewPortfolioStore(db)

	p, err := store.GetOrCreate(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if p.Name != DefaultName {
		t.Errorf("name must default to %q, got %q", DefaultName, p.Name)
	}
	for field, raw := range map[string]datatypes.JSON{
		"color_scheme":    p.ColorScheme,
		"social_links":    p.SocialLinks,
		"design_settings": p.DesignSettings,
	} {
		if string(raw) != "{}" {
			t.Errorf("%s must default to {}, got %q", field, raw)
		}
	}
	for field, raw := range map[string]datatypes.JSON{
		"skills":       p.Skills,
		"experience":   p.Experience,
		"education":    p.Education,
		"certificates": p.Certificates,
		"languages":    p.Languages,
	} {
		if string(raw) != "[]" {
			t.Errorf("%s must default to [], got %q", field, raw)
		}
	}

	// Second call returns the same row, never a duplicate.
	again, err := store.GetOrCreate(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("second get or create: %v", err)
	}
	if again.ID != p.ID {
		t.Fatalf("expected the same portfolio, got %d and %d", p.ID, again.ID)
	}
	var count int64
	db.Model(&database.Portfolio{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one portfolio, found %d", count)
	}
}

func TestGetOrCreateRepairsLegacyRow(t *testing.T) {
	db := newTestDB(t)
	user, p := seedUserWithPortfolio(t, db, "a@example.com")

	// Simulate a row written before the JSON defaults existed.
	if err := db.Model(&database.Portfolio{}).Where("id = ?", p.ID).
		Updates(map[string]any{"skills": nil, "color_scheme": nil}).Error; err != nil {
		t.Fatalf("damage row: %v", err)
	}

	repaired, err := NewPortfolioStore(db).GetOrCreate(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if string(repaired.Skills) != "[]" {
		t.Errorf("skills must be repaired to [], got %q", repaired.Skills)
	}
	if string(repaired.ColorScheme) != "{}" {
		t.Errorf("color scheme must be repaired to {}, got %q", repaired.ColorScheme)
	}
}

func TestPortfolioUpdateWebsiteNormalized(t *testing.T) {
	db := newTestDB(t)
	user, _ := seedUserWithPortfolio(t, db, "a@example.com")
	store := NewPortfolioStore(db)

	website := "example.com"
	p, err := store.Update(context.Background(), user.ID, PortfolioUpdate{Website: &website})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.Website != "https://example.com" {
		t.Fatalf("website must be prefixed, got %q", p.Website)
	}
}

func TestPortfolioUpdateColorScheme(t *testing.T) {
	db := newTestDB(t)
	user, _ := seedUserWithPortfolio(t, db, "a@example.com")
	store := NewPortfolioStore(db)

	_, err := store.Update(context.Background(), user.ID, PortfolioUpdate{
		ColorScheme: datatypes.JSON([]byte(`{"primary_color": "red"}`)),
	})
	if err == nil || !IsValidation(err) {
		t.Fatalf("malformed hex color must fail validation, got %v", err)
	}

	p, err := store.Update(context.Background(), user.ID, PortfolioUpdate{
		ColorScheme: datatypes.JSON([]byte(`{"primary_color": "#FF0000", "mood": "dark"}`)),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if string(p.ColorScheme) != `{"primary_color": "#FF0000", "mood": "dark"}` {
		t.Fatalf("scheme must be stored verbatim, got %q", p.ColorScheme)
	}

	// The lenient fallback: a JSON string is stored as-is, not validated.
	p, err = store.Update(context.Background(), user.ID, PortfolioUpdate{
		ColorScheme: datatypes.JSON([]byte(`"свободный текст"`)),
	})
	if err != nil {
		t.Fatalf("string fallback must be accepted: %v", err)
	}
	if string(p.ColorScheme) != `"свободный текст"` {
		t.Fatalf("fallback must be stored verbatim, got %q", p.ColorScheme)
	}
}

func TestPortfolioUpdateTemplate(t *testing.T) {
	db := newTestDB(t)
	user, _ := seedUserWithPortfolio(t, db, "a@example.com")
	store := NewPortfolioStore(db)

	missing := uint(999)
	_, err := store.Update(context.Background(), user.ID, PortfolioUpdate{TemplateID: &missing})
	if err == nil || !IsValidation(err) {
		t.Fatalf("missing template must fail validation, got %v", err)
	}

	tpl := database.Template{Name: "Минималистичный", Config: datatypes.JSON([]byte("{}")), IsActive: true}
	if err := db.Create(&tpl).Error; err != nil {
		t.Fatalf("create template: %v", err)
	}

	p, err := store.Update(context.Background(), user.ID, PortfolioUpdate{TemplateID: &tpl.ID})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.TemplateID == nil || *p.TemplateID != tpl.ID {
		t.Fatalf("template must be set, got %v", p.TemplateID)
	}

	p, err = store.Update(context.Background(), user.ID, PortfolioUpdate{ClearTemplate: true})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if p.TemplateID != nil {
		t.Fatalf("template must be cleared, got %v", *p.TemplateID)
	}
}

func TestTemplateStoreActiveOnly(t *testing.T) {
	db := newTestDB(t)
	store := NewTemplateStore(db)

	active := database.Template{Name: "Активный", Config: datatypes.JSON([]byte("{}")), IsActive: true}
	inactive := database.Template{Name: "Скрытый", Config: datatypes.JSON([]byte("{}")), IsActive: true}
	if err := db.Create(&active).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.Create(&inactive).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.Model(&inactive).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	templates, err := store.ListActive(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(templates) != 1 || templates[0].ID != active.ID {
		t.Fatalf("expected only the active template, got %v", templates)
	}

	if _, err := store.GetActive(context.Background(), inactive.ID); err != ErrNotFound {
		t.Fatalf("inactive template must read as missing, got %v", err)
	}
	if _, err := store.GetActive(context.Background(), active.ID); err != nil {
		t.Fatalf("active template must load: %v", err)
	}
}
