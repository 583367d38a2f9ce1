package listing

import (
	"time"

	"gigmarket/internal/domain"
)

// Listing is a service offering ("gig") published by a seller.
// Images holds public object-store URLs in upload completion order.
type Listing struct {
	ID           int64        `gorm:"column:id;primaryKey" json:"id"`
	Title        string       `gorm:"column:title;not null" json:"title"`
	Description  string       `gorm:"column:description" json:"description"`
	Category     string       `gorm:"column:category;index" json:"category"`
	Features     string       `gorm:"column:features" json:"features"`
	Price        int          `gorm:"column:price" json:"price"`
	ShortDesc    string       `gorm:"column:short_desc" json:"shortDesc"`
	DeliveryTime int          `gorm:"column:delivery_time" json:"deliveryTime"`
	Revisions    int          `gorm:"column:revisions" json:"revisions"`
	Images       []string     `gorm:"column:images;type:text;serializer:json" json:"images"`
	CreatedByID  int64        `gorm:"column:user_id;index;not null" json:"userId"`
	CreatedBy    *domain.User `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	CreatedAt    time.Time    `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt    time.Time    `gorm:"column:updated_at" json:"updatedAt"`
}

func (Listing) TableName() string { return "services" }

// apply overwrites every user-editable field with in.
func (l *Listing) apply(in *ListingInput) {
	l.Title = in.Title
	l.Description = in.Description
	l.Category = in.Category
	l.Features = in.Features
	l.Price = in.Price
	l.ShortDesc = in.ShortDesc
	l.DeliveryTime = in.DeliveryTime
	l.Revisions = in.Revisions
}
