package model

import "time"

// 在庫入荷、注文ステータス更新など。
type AuditAction string

const (
	//入荷で在庫を増やした操作。
	AuditActionImportStock AuditAction = "IMPORT_STOCK"
	//注文ステータスを更新した操作。
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	//割引の作成・更新・削除。
	AuditActionUpsertDiscount AuditAction = "UPSERT_DISCOUNT"
	AuditActionDeleteDiscount AuditAction = "DELETE_DISCOUNT"
	//強制ログアウト。
	AuditActionForceLogout AuditAction = "FORCE_LOGOUT"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceBook        AuditResourceType = "book"
	AuditResourceOrder       AuditResourceType = "order"
	AuditResourceDiscount    AuditResourceType = "discount"
	AuditResourceStockImport AuditResourceType = "stock_import"
	AuditResourceUser        AuditResourceType = "user"
)

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザー（主に従業員・管理者）のID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	ResourceID int64 `gorm:"not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`

	//JSON文字列で保存する。
	AfterJSON string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
