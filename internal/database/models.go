package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is an account. Email is the login identifier; username is the public
// handle. Deleting a user cascades to the owned portfolio.
type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;size:254"`
	Username     string `gorm:"uniqueIndex;size:150"`
	PasswordHash string `gorm:"size:255"`
	FirstName    string `gorm:"size:150"`
	LastName     string `gorm:"size:150"`
	Bio          string `gorm:"size:500"`
	Phone        string `gorm:"size:20"`
	Website      string `gorm:"size:512"`
	AvatarKey    string `gorm:"size:512"`
	IsAdmin      bool   `gorm:"default:false"`
	IsActive     bool   `gorm:"default:true"`

	Portfolio *Portfolio `gorm:"constraint:OnDelete:CASCADE"`
}

// Portfolio holds the profile, contact and design fields plus the ordered
// item collection. Exactly one per user (uniqueIndex on UserID).
//
// Every JSON column defaults to an empty object/list, never NULL: the editor
// assumes the fields are present.
type Portfolio struct {
	gorm.Model
	UserID uint `gorm:"uniqueIndex"`

	Name        string `gorm:"size:200"`
	Description string

	// SET NULL so deactivating or removing a template never breaks
	// portfolios that reference it.
	TemplateID *uint
	Template   *Template `gorm:"constraint:OnDelete:SET NULL"`

	ColorScheme datatypes.JSON `gorm:"type:jsonb"`
	AvatarKey   string         `gorm:"size:512"`

	Phone       string         `gorm:"size:20"`
	Email       string         `gorm:"size:254"`
	Website     string         `gorm:"size:512"`
	Location    string         `gorm:"size:200"`
	SocialLinks datatypes.JSON `gorm:"type:jsonb"`

	Skills       datatypes.JSON `gorm:"type:jsonb"`
	Experience   datatypes.JSON `gorm:"type:jsonb"`
	Education    datatypes.JSON `gorm:"type:jsonb"`
	Certificates datatypes.JSON `gorm:"type:jsonb"`
	Languages    datatypes.JSON `gorm:"type:jsonb"`

	DesignSettings datatypes.JSON `gorm:"type:jsonb"`

	Items []PortfolioItem `gorm:"constraint:OnDelete:CASCADE"`
}

// PortfolioItem is one work entry. ContentData's shape depends on
// ContentType (image, video, link, gallery, pdf, text). Order is a sort key,
// not an index: values need not be unique or contiguous, ties break by
// CreatedAt ascending.
type PortfolioItem struct {
	gorm.Model
	PortfolioID uint `gorm:"index"`

	Title       string `gorm:"size:200"`
	Description string
	ImageKey    string `gorm:"size:512"`
	Order       int    `gorm:"column:display_order;default:0"`

	ContentType string         `gorm:"size:20;default:image"`
	ContentData datatypes.JSON `gorm:"type:jsonb"`
	Category    string         `gorm:"size:100"`
	Tags        datatypes.JSON `gorm:"type:jsonb"`
}

// Template is a shared visual configuration. Read-only from the portfolio
// side; only admins manage the catalog.
type Template struct {
	gorm.Model
	Name            string         `gorm:"size:100"`
	PreviewImageKey string         `gorm:"size:512"`
	Config          datatypes.JSON `gorm:"type:jsonb"`
	IsActive        bool           `gorm:"default:true"`
}
