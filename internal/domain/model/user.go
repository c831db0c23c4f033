package model

import "time"

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleEmployee Role = "EMPLOYEE"
	RoleAdmin    Role = "ADMIN"
)

type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Email        string `gorm:"uniqueIndex;not null"`
	Name         string `gorm:"type:varchar(255);not null;default:''"`
	Role         Role   `gorm:"type:varchar(20);not null;default:'CUSTOMER'"`
	TokenVersion int    `gorm:"not null;default:0"`
	IsActive     bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Permission string

const (
	PermOrderApprove      Permission = "order.approve"
	PermOrderUpdateStatus Permission = "order.update_status"
	PermOrderListAll      Permission = "order.list_all"
	PermBookManage        Permission = "book.manage"
	PermDiscountManage    Permission = "discount.manage"
	PermStockImport       Permission = "stock.import"
	PermUserManage        Permission = "user.manage"
	PermAuditRead         Permission = "audit.read"
)

// ロールごとの権限
var rolePermissions = map[Role][]Permission{
	RoleEmployee: {
		PermOrderApprove,
		PermOrderUpdateStatus,
		PermOrderListAll,
		PermStockImport,
	},
	RoleAdmin: {
		PermOrderApprove,
		PermOrderUpdateStatus,
		PermOrderListAll,
		PermBookManage,
		PermDiscountManage,
		PermStockImport,
		PermUserManage,
		PermAuditRead,
	},
}

// Actor はリクエストを行ったユーザー（JWTから復元）
type Actor struct {
	UserID int64
	Role   Role
}

func (a Actor) Can(p Permission) bool {
	for _, have := range rolePermissions[a.Role] {
		if have == p {
			return true
		}
	}
	return false
}
