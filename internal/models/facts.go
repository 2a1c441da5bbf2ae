package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// WeightData keeps one weight per participant and calendar day.
type WeightData struct {
	ID     int64           `gorm:"primaryKey" json:"id"`
	UserID int64           `gorm:"not null;uniqueIndex:idx_weight_data_user_date,priority:1" json:"user_id"`
	Date   datatypes.Date  `gorm:"type:date;not null;uniqueIndex:idx_weight_data_user_date,priority:2" json:"date"`
	Weight decimal.Decimal `gorm:"type:numeric(6,2);not null" json:"weight"`
	User   *User           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (WeightData) TableName() string {
	return "weight_data"
}

// ActivityData keeps one value per participant, activity and calendar day.
// Calories stay NULL when neither a value nor a conversion factor was known.
type ActivityData struct {
	ID         int64               `gorm:"primaryKey" json:"id"`
	UserID     int64               `gorm:"not null;uniqueIndex:idx_activity_data_user_activity_date,priority:1" json:"user_id"`
	ActivityID int64               `gorm:"not null;uniqueIndex:idx_activity_data_user_activity_date,priority:2" json:"activity_id"`
	Date       datatypes.Date      `gorm:"type:date;not null;uniqueIndex:idx_activity_data_user_activity_date,priority:3" json:"date"`
	Value      decimal.Decimal     `gorm:"type:numeric(8,2);not null" json:"value"`
	Calories   decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"calories"`
	User       *User               `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Activity   *Activity           `gorm:"foreignKey:ActivityID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ActivityData) TableName() string {
	return "activity_data"
}
