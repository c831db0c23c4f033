package model

import "time"

// 配送先住所
type Address struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   int64  `gorm:"not null;index" json:"user_id"`
	Name     string `gorm:"type:varchar(255);not null" json:"name"`
	Phone    string `gorm:"type:varchar(30);not null" json:"phone"`
	City     string `gorm:"type:varchar(255);not null" json:"city"`
	District string `gorm:"type:varchar(255);not null" json:"district"`
	Ward     string `gorm:"type:varchar(255);not null" json:"ward"`
	Line     string `gorm:"type:varchar(255);not null" json:"line"`

	//このユーザーのデフォルト住所か
	IsDefault bool `gorm:"not null;default:false" json:"is_default"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// 注文に複製する配送先。住所を後で編集しても過去の注文は変わらない。
type ShippingSnapshot struct {
	ShippingName     string `gorm:"type:varchar(255);not null" json:"shipping_name"`
	ShippingPhone    string `gorm:"type:varchar(30);not null" json:"shipping_phone"`
	ShippingCity     string `gorm:"type:varchar(255);not null" json:"shipping_city"`
	ShippingDistrict string `gorm:"type:varchar(255);not null" json:"shipping_district"`
	ShippingWard     string `gorm:"type:varchar(255);not null" json:"shipping_ward"`
	ShippingLine     string `gorm:"type:varchar(255);not null" json:"shipping_line"`
}

func (a Address) Snapshot() ShippingSnapshot {
	return ShippingSnapshot{
		ShippingName:     a.Name,
		ShippingPhone:    a.Phone,
		ShippingCity:     a.City,
		ShippingDistrict: a.District,
		ShippingWard:     a.Ward,
		ShippingLine:     a.Line,
	}
}
