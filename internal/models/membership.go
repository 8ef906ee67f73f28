package models

import (
	"time"
)

// UserRecipe is the (user, recipe) pair shared by favorites and shopping cart entries.
type UserRecipe struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	RecipeID  uint      `gorm:"primaryKey;autoIncrement:false;index" json:"recipe_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Favorite struct {
	UserRecipe
	User   User   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Recipe Recipe `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type ShoppingCartEntry struct {
	UserRecipe
	User   User   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Recipe Recipe `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Follow means UserID is subscribed to AuthorID.
type Follow struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;check:no_self_follow,user_id <> author_id" json:"user_id"`
	AuthorID  uint      `gorm:"primaryKey;autoIncrement:false;index" json:"author_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Author    User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// All lists every model in dependency order for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Tag{},
		&Ingredient{},
		&Recipe{},
		&IngredientInRecipe{},
		&Favorite{},
		&ShoppingCartEntry{},
		&Follow{},
	}
}
