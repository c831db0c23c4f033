package model

import "time"

// 遷移時の副作用
type TransitionEffect int

const (
	EffectNone TransitionEffect = iota
	//在庫を確定する（available -= q, sold += q）
	EffectCommitStock
	//確定済み在庫を戻す。RESTORE_STOCK_ON_CANCEL が有効な時だけ実行する。
	EffectRevertStock
)

// TransitionRule は (現在, 要求) の組み合わせ1つ分の定義。
type TransitionRule struct {
	Effect TransitionEffect

	//この遷移に必要な権限。空なら注文の持ち主でも可。
	Permission Permission

	//承認者を employee_id に記録するか
	RecordEmployee bool
}

// 遷移表。ここに無い組み合わせはすべて不正。
var orderTransitions = map[OrderStatus]map[OrderStatus]TransitionRule{
	OrderStatusPending: {
		OrderStatusApproved: {Effect: EffectCommitStock, Permission: PermOrderApprove, RecordEmployee: true},
		OrderStatusCanceled: {Effect: EffectNone},
	},
	OrderStatusApproved: {
		OrderStatusDelivering: {Effect: EffectNone, Permission: PermOrderUpdateStatus},
		OrderStatusCanceled:   {Effect: EffectRevertStock, Permission: PermOrderUpdateStatus},
	},
	OrderStatusDelivering: {
		OrderStatusDelivered: {Effect: EffectNone, Permission: PermOrderUpdateStatus},
	},
	OrderStatusDelivered: {
		OrderStatusCompleted: {Effect: EffectNone, Permission: PermOrderUpdateStatus},
	},
}

// LookupTransition は from -> to の遷移ルールを返す。許可されていなければ ok=false。
func LookupTransition(from, to OrderStatus) (TransitionRule, bool) {
	next, ok := orderTransitions[from]
	if !ok {
		return TransitionRule{}, false
	}
	rule, ok := next[to]
	return rule, ok
}

// 遷移先の一覧（表示やテスト用）
func AllowedTargets(from OrderStatus) []OrderStatus {
	out := make([]OrderStatus, 0, len(orderTransitions[from]))
	for to := range orderTransitions[from] {
		out = append(out, to)
	}
	return out
}

func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// 遷移先に応じてタイムスタンプを埋める
func (o *Order) stamp(to OrderStatus, now time.Time) {
	switch to {
	case OrderStatusApproved:
		o.ApprovedAt = &now
	case OrderStatusCanceled:
		o.CanceledAt = &now
	case OrderStatusDelivered:
		o.DeliveredAt = &now
	case OrderStatusCompleted:
		o.CompletedAt = &now
	}
}

// ApplyTransition は遷移表を確認したうえで status と時刻を更新する。
// 副作用（在庫など）は呼び出し側がルールを見て実行する。
func (o *Order) ApplyTransition(to OrderStatus, actorID int64, now time.Time) (TransitionRule, bool) {
	rule, ok := LookupTransition(o.Status, to)
	if !ok {
		return TransitionRule{}, false
	}
	o.Status = to
	o.UpdatedAt = now
	o.stamp(to, now)
	if rule.RecordEmployee {
		id := actorID
		o.EmployeeID = &id
	}
	return rule, true
}
