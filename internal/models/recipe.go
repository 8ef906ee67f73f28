package models

import (
	"time"
)

type Recipe struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AuthorID    uint      `gorm:"not null;uniqueIndex:idx_recipe_author_name" json:"author_id"`
	Author      User      `gorm:"constraint:OnDelete:CASCADE" json:"author"`
	Name        string    `gorm:"size:200;not null;uniqueIndex:idx_recipe_author_name" json:"name"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	Image       string    `gorm:"size:255;not null" json:"image"`
	CookingTime int       `gorm:"not null;check:chk_recipes_cooking_time,cooking_time > 0" json:"cooking_time"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`

	Tags              []Tag                `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE" json:"tags"`
	IngredientAmounts []IngredientInRecipe `gorm:"constraint:OnDelete:CASCADE" json:"ingredients"`

	// Membership flags for the requesting user, computed in the SELECT.
	IsFavorited      bool `gorm:"->;-:migration" json:"is_favorited"`
	IsInShoppingCart bool `gorm:"->;-:migration" json:"is_in_shopping_cart"`
}

// IngredientInRecipe is the amount of one ingredient used by one recipe.
type IngredientInRecipe struct {
	RecipeID     uint       `gorm:"primaryKey;autoIncrement:false" json:"recipe_id"`
	IngredientID uint       `gorm:"primaryKey;autoIncrement:false;index" json:"ingredient_id"`
	Ingredient   Ingredient `gorm:"constraint:OnDelete:RESTRICT" json:"ingredient"`
	Amount       int        `gorm:"not null;check:chk_recipe_ingredients_amount,amount > 0 AND amount <= 32767" json:"amount"`
}

func (IngredientInRecipe) TableName() string {
	return "recipe_ingredients"
}
