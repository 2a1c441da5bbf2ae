package models

import "github.com/shopspring/decimal"

// User is a participant row of the analytics store. The progress view fills the
// point columns; the facts view only maintains the nickname.
type User struct {
	ID           int64               `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Nickname     string              `gorm:"size:255" json:"nickname"`
	CurrentPoint decimal.NullDecimal `gorm:"type:numeric(12,4)" json:"current_point"`
	TargetPoint  decimal.NullDecimal `gorm:"type:numeric(12,4)" json:"target_point"`
	LostWeight   decimal.NullDecimal `gorm:"type:numeric(8,4)" json:"lost_weight"`
}

func (User) TableName() string {
	return "users"
}

// Activity is the analytics copy of the activity type catalog.
type Activity struct {
	ID              int64               `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name            string              `gorm:"size:255;not null" json:"name"`
	Unit            string              `gorm:"size:50;not null" json:"unit"`
	CaloriesPerUnit decimal.NullDecimal `gorm:"type:numeric(8,3)" json:"calories_per_unit"`
}

func (Activity) TableName() string {
	return "activities"
}
