package models

import "time"

type Category string

const (
	CategoryBrowser Category = "browser"
	CategoryMobile  Category = "mobile"
	CategoryOther   Category = "other"
)

// Categories lists every valid category.
var Categories = []Category{CategoryBrowser, CategoryMobile, CategoryOther}

func (c Category) Valid() bool {
	switch c {
	case CategoryBrowser, CategoryMobile, CategoryOther:
		return true
	}
	return false
}

// Vault is one stored credential. Password holds a one-way hash; the
// plaintext is never persisted.
type Vault struct {
	ID                      string    `json:"id"`
	UserID                  string    `json:"user_id"`
	Category                Category  `json:"vault_category"`
	SiteAddress             string    `json:"vault_site_address"`
	Username                string    `json:"vault_username"`
	Password                string    `json:"password"`
	SecureGeneratedPassword string    `json:"secure_generated_password"`
	Tags                    []string  `json:"tags"`
	Icon                    string    `json:"icon,omitempty"`
	IsLiked                 bool      `json:"is_liked"`
	Strength                string    `json:"password_strength"`
	HealthScore             int       `json:"health_score"`
	Breach                  string    `json:"password_breach"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}
