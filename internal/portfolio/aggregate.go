package portfolio

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"craftfolio/internal/database"
)

// DefaultName is the display name a freshly created portfolio receives.
const DefaultName = "Мое портфолио"

// PortfolioStore owns the one-per-user portfolio aggregate.
type PortfolioStore struct {
	db *gorm.DB
}

// NewPortfolioStore returns a PortfolioStore backed by db.
func NewPortfolioStore(db *gorm.DB) *PortfolioStore {
	return &PortfolioStore{db: db}
}

func emptyObject() datatypes.JSON { return datatypes.JSON([]byte("{}")) }
func emptyList() datatypes.JSON   { return datatypes.JSON([]byte("[]")) }

// GetOrCreate returns userID's portfolio, creating an empty one inside a
// single transaction on first access. An authenticated account therefore
// never sees a missing-portfolio error, and two concurrent first requests
// cannot race into duplicates. Rows written before the JSON defaults existed
// are repaired on read so the editor always finds every field present.
func (s *PortfolioStore) GetOrCreate(ctx context.Context, userID uint) (*database.Portfolio, error) {
	var p database.Portfolio
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where(database.Portfolio{UserID: userID}).
			Attrs(database.Portfolio{
				Name:           DefaultName,
				ColorScheme:    emptyObject(),
				SocialLinks:    emptyObject(),
				Skills:         emptyList(),
				Experience:     emptyList(),
				Education:      emptyList(),
				Certificates:   emptyList(),
				Languages:      emptyList(),
				DesignSettings: emptyObject(),
			}).
			FirstOrCreate(&p).Error; err != nil {
			return err
		}
		return repairJSONDefaults(tx, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// repairJSONDefaults backfills NULL jsonb columns on legacy rows.
func repairJSONDefaults(tx *gorm.DB, p *database.Portfolio) error {
	updates := map[string]any{}
	fill := func(column string, field *datatypes.JSON, def datatypes.JSON) {
		if len(*field) == 0 || string(*field) == "null" {
			*field = def
			updates[column] = def
		}
	}
	fill("color_scheme", &p.ColorScheme, emptyObject())
	fill("social_links", &p.SocialLinks, emptyObject())
	fill("design_settings", &p.DesignSettings, emptyObject())
	fill("skills", &p.Skills, emptyList())
	fill("experience", &p.Experience, emptyList())
	fill("education", &p.Education, emptyList())
	fill("certificates", &p.Certificates, emptyList())
	fill("languages", &p.Languages, emptyList())

	if len(updates) == 0 {
		return nil
	}
	return tx.Model(&database.Portfolio{}).Where("id = ?", p.ID).Updates(updates).Error
}

// Get loads a portfolio by id without an ownership check, for the read-only
// viewer.
func (s *PortfolioStore) Get(ctx context.Context, id uint) (*database.Portfolio, error) {
	var p database.Portfolio
	err := s.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PortfolioUpdate is a partial field set: nil pointers and nil JSON slices
// leave the stored value untouched.
type PortfolioUpdate struct {
	Name        *string
	Description *string

	// TemplateID sets the template reference; ClearTemplate removes it.
	TemplateID    *uint
	ClearTemplate bool

	Phone    *string
	Email    *string
	Website  *string
	Location *string

	AvatarKey *string

	ColorScheme    datatypes.JSON
	SocialLinks    datatypes.JSON
	Skills         datatypes.JSON
	Experience     datatypes.JSON
	Education      datatypes.JSON
	Certificates   datatypes.JSON
	Languages      datatypes.JSON
	DesignSettings datatypes.JSON
}

// Update validates and applies the supplied subset of fields to userID's
// portfolio. Color scheme and social links are checked only when the payload
// actually decoded into the expected shape: the lenient string fallback from
// DecodeJSONField is stored as-is.
func (s *PortfolioStore) Update(ctx context.Context, userID uint, in PortfolioUpdate) (*database.Portfolio, error) {
	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Phone != nil {
		updates["phone"] = *in.Phone
	}
	if in.Email != nil {
		updates["email"] = *in.Email
	}
	if in.Website != nil {
		updates["website"] = NormalizeWebsite(*in.Website)
	}
	if in.Location != nil {
		updates["location"] = *in.Location
	}
	if in.AvatarKey != nil {
		updates["avatar_key"] = *in.AvatarKey
	}

	switch {
	case in.ClearTemplate:
		updates["template_id"] = nil
	case in.TemplateID != nil:
		var tpl database.Template
		err := s.db.WithContext(ctx).First(&tpl, *in.TemplateID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newValidationError("template", "Шаблон не найден")
		}
		if err != nil {
			return nil, err
		}
		updates["template_id"] = tpl.ID
	}

	if in.ColorScheme != nil {
		var scheme ColorScheme
		if err := json.Unmarshal(in.ColorScheme, &scheme); err == nil {
			if err := ValidateColorScheme(scheme); err != nil {
				return nil, err
			}
		}
		updates["color_scheme"] = in.ColorScheme
	}
	if in.SocialLinks != nil {
		var links map[string]string
		if err := json.Unmarshal(in.SocialLinks, &links); err == nil {
			if err := ValidateSocialLinks(links); err != nil {
				return nil, err
			}
		}
		updates["social_links"] = in.SocialLinks
	}
	if in.Skills != nil {
		updates["skills"] = in.Skills
	}
	if in.Experience != nil {
		updates["experience"] = in.Experience
	}
	if in.Education != nil {
		updates["education"] = in.Education
	}
	if in.Certificates != nil {
		updates["certificates"] = in.Certificates
	}
	if in.Languages != nil {
		updates["languages"] = in.Languages
	}
	if in.DesignSettings != nil {
		updates["design_settings"] = in.DesignSettings
	}

	if len(updates) == 0 {
		return p, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&database.Portfolio{}).Where("id = ?", p.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	var reloaded database.Portfolio
	if err := s.db.WithContext(ctx).First(&reloaded, p.ID).Error; err != nil {
		return nil, err
	}
	return &reloaded, nil
}
