package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
)

type OrderSettings struct {
	ShippingFee decimal.Decimal
	//APPROVED -> CANCELED で確定済み在庫を戻すか
	RestoreStockOnCancel bool
}

type OrderUsecase struct {
	tx       repo.TransactionManager
	resolver *DiscountResolver
	clock    Clock
	ids      IDGenerator
	logger   *log.Logger
	settings OrderSettings
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	resolver *DiscountResolver,
	clock Clock,
	ids IDGenerator,
	logger *log.Logger,
	settings OrderSettings,
) *OrderUsecase {
	return &OrderUsecase{
		tx:       tx,
		resolver: resolver,
		clock:    clock,
		ids:      ids,
		logger:   logger,
		settings: settings,
	}
}

type PlaceOrderInput struct {
	AddressID      int64
	PaymentMethod  string
	Note           string
	Coupon         string
	IdempotencyKey string
}

type OrderItemOutput struct {
	BookID     int64           `json:"book_id"`
	Title      string          `json:"title"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int64           `json:"quantity"`
	Discount   decimal.Decimal `json:"discount"`
	DiscountID *int64          `json:"discount_id,omitempty"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

type OrderOutput struct {
	ID            int64  `json:"id"`
	Code          string `json:"code"`
	CustomerID    int64  `json:"customer_id"`
	EmployeeID    *int64 `json:"employee_id,omitempty"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
	PaymentStatus string `json:"payment_status,omitempty"`
	Note          string `json:"note"`

	model.ShippingSnapshot

	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
	DiscountID  *int64          `json:"discount_id,omitempty"`

	OrderedAt   time.Time  `json:"ordered_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	CanceledAt  *time.Time `json:"canceled_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Items []OrderItemOutput `json:"items"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// PlaceOrder はカートから注文を作る。在庫カウンタはここでは動かさない（承認時に確定）。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.AddressID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid address_id")
	}
	method := model.PaymentMethod(strings.ToLower(strings.TrimSpace(in.PaymentMethod)))
	if method == "" {
		method = model.PaymentMethodCOD
	}
	if !method.Valid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_method")
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 255 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency_key")
	}
	if len(in.Note) > 1000 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "note too long")
	}
	coupon := strings.TrimSpace(in.Coupon)

	var out OrderOutput
	replayed := false

	//注文処理はトランザクション
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err != nil {
				return fmt.Errorf("find order by idempotency key: %w", err)
			}
			if found {
				replayed = true
				out, err = loadOrderOutput(ctx, r, existing)
				return err
			}
		}

		cartItems, err := r.CartItems().ListByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("list cart items: %w", err)
		}
		if len(cartItems) == 0 {
			return &EmptyCartError{UserID: userID}
		}

		//住所の存在確認＋所有チェック（他人の住所は存在しない扱い）
		addr, err := r.Addresses().FindByID(ctx, in.AddressID)
		if errors.Is(err, repo.ErrNotFound) || (err == nil && addr.UserID != userID) {
			return notFound("address", in.AddressID)
		}
		if err != nil {
			return fmt.Errorf("find address: %w", err)
		}

		now := u.clock.Now()
		sort.Slice(cartItems, func(i, j int) bool { return cartItems[i].BookID < cartItems[j].BookID })

		//価格のスナップショットと明細ごとの書籍割引
		items := make([]model.OrderItem, 0, len(cartItems))
		subtotal := decimal.Zero
		lineDiscounts := decimal.Zero
		for _, ci := range cartItems {
			b, err := r.Books().FindByID(ctx, ci.BookID)
			if errors.Is(err, repo.ErrNotFound) || (err == nil && !b.IsActive) {
				return notFound("book", ci.BookID)
			}
			if err != nil {
				return fmt.Errorf("find book: %w", err)
			}

			item := model.OrderItem{
				BookID:        b.ID,
				TitleSnapshot: b.Title,
				Quantity:      ci.Quantity,
				PriceAtTime:   b.Price,
				DiscountValue: decimal.Zero,
				CreatedAt:     now,
			}
			lineTotal := item.LineTotal()

			bd, err := u.resolver.Resolve(ctx, r.Discounts(), DiscountQuery{
				TargetType:     model.DiscountTargetBook,
				TargetID:       b.ID,
				PurchaseAmount: lineTotal,
				At:             now,
			})
			if err != nil {
				return err
			}
			if bd != nil {
				item.DiscountValue = bd.Amount
				id := bd.Discount.ID
				item.DiscountID = &id
			}

			subtotal = subtotal.Add(lineTotal)
			lineDiscounts = lineDiscounts.Add(item.DiscountValue)
			items = append(items, item)
		}

		//注文全体の割引（クーポン指定が無ければ一番得なもの）
		purchase := subtotal.Sub(lineDiscounts)
		var od *ResolvedDiscount
		if coupon != "" {
			od, err = u.resolver.ResolveCoupon(ctx, r.Discounts(), coupon, purchase, now)
		} else {
			od, err = u.resolver.Resolve(ctx, r.Discounts(), DiscountQuery{
				TargetType:     model.DiscountTargetOrder,
				PurchaseAmount: purchase,
				At:             now,
			})
		}
		if err != nil {
			return err
		}

		discount := lineDiscounts
		var orderDiscountID *int64
		if od != nil {
			discount = discount.Add(od.Amount)
			id := od.Discount.ID
			orderDiscountID = &id
		}

		fee := u.settings.ShippingFee
		total := subtotal.Add(fee).Sub(discount)
		if total.IsNegative() {
			total = decimal.Zero
		}

		order := model.Order{
			Code:             u.ids.OrderCode(now),
			CustomerID:       userID,
			Status:           model.OrderStatusPending,
			ShippingSnapshot: addr.Snapshot(),
			Note:             in.Note,
			PaymentMethod:    method,
			Subtotal:         subtotal,
			ShippingFee:      fee,
			Discount:         discount,
			Total:            total,
			DiscountID:       orderDiscountID,
			OrderedAt:        now,
			UpdatedAt:        now,
		}
		if key != "" {
			order.IdempotencyKey = &key
		}

		// 注文作成
		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		order.ID = orderID

		//注文明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		payment, err := r.Payments().Create(ctx, model.Payment{
			OrderID:   orderID,
			Method:    method,
			Status:    model.PaymentStatusPending,
			Amount:    total,
			TxnRef:    u.ids.TxnRef(),
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		//カートを空にする（再注文防止）
		if err := r.CartItems().DeleteAllByUserID(ctx, userID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		out = toOrderOutput(order, items, &payment)
		return nil
	})

	if err != nil {
		//同時に同じキーで入った場合は、先に確定した方を返す
		if key != "" && !isDomainError(err) {
			if existing, ok := u.findByIdempotencyKey(ctx, userID, key); ok {
				return existing, nil
			}
		}
		return OrderOutput{}, err
	}

	if !replayed {
		u.logger.Infoj(log.JSON{
			"event":       "order_placed",
			"order_id":    out.ID,
			"code":        out.Code,
			"customer_id": userID,
			"total":       out.Total.String(),
			"items":       len(out.Items),
		})
	}
	return out, nil
}

func (u *OrderUsecase) findByIdempotencyKey(ctx context.Context, userID int64, key string) (OrderOutput, bool) {
	var out OrderOutput
	found := false
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		existing, ok, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil || !ok {
			return err
		}
		found = true
		out, err = loadOrderOutput(ctx, r, existing)
		return err
	})
	return out, err == nil && found
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	out := OrderListOutput{Page: page, Limit: limit}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListByUserID(ctx, userID, page, limit)
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}

		out.Total = total
		out.Items = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			oo, err := loadOrderOutput(ctx, r, o)
			if err != nil {
				return err
			}
			out.Items = append(out.Items, oo)
		}
		return nil
	})

	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("order", orderID)
		}
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}
		if o.CustomerID != userID {
			//他人の注文は「存在しない扱い」にする
			return notFound("order", orderID)
		}

		out, err = loadOrderOutput(ctx, r, o)
		return err
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// CancelMyOrder は顧客本人によるキャンセル。PENDING の間だけ。
func (u *OrderUsecase) CancelMyOrder(ctx context.Context, actor model.Actor, orderID int64) (OrderOutput, error) {
	return u.transition(ctx, actor, orderID, model.OrderStatusCanceled, true)
}

// Transition は遷移表に従ってステータスを変え、必要なら在庫を動かす。
// 全て1トランザクション。失敗したら何も変わらない。
func (u *OrderUsecase) Transition(ctx context.Context, actor model.Actor, orderID int64, to model.OrderStatus) (OrderOutput, error) {
	return u.transition(ctx, actor, orderID, to, false)
}

func (u *OrderUsecase) transition(ctx context.Context, actor model.Actor, orderID int64, to model.OrderStatus, ownOnly bool) (OrderOutput, error) {
	if actor.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if !to.Valid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var (
		out  OrderOutput
		from model.OrderStatus
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//行ロックを取ってから判定する
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("order", orderID)
		}
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}
		owner := o.CustomerID == actor.UserID
		if !owner && (ownOnly || !actor.Can(model.PermOrderListAll)) {
			return notFound("order", orderID)
		}

		from = o.Status
		rule, ok := model.LookupTransition(from, to)
		if !ok {
			return &InvalidTransitionError{OrderID: orderID, From: from, To: to}
		}
		if rule.Permission != "" {
			if !actor.Can(rule.Permission) {
				return ErrForbidden
			}
		} else if !owner && !actor.Can(model.PermOrderUpdateStatus) {
			return ErrForbidden
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}

		switch rule.Effect {
		case model.EffectCommitStock:
			if err := applyStock(ctx, r.Books(), items, model.SaleDelta); err != nil {
				return err
			}
		case model.EffectRevertStock:
			if u.settings.RestoreStockOnCancel {
				if err := applyStock(ctx, r.Books(), items, model.RevertSaleDelta); err != nil {
					return err
				}
			}
		}

		now := u.clock.Now()
		o.ApplyTransition(to, actor.UserID, now)

		//ロック済みだが念のため前の状態を条件に書く
		updated, err := r.Orders().UpdateStatusFrom(ctx, o, from)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if !updated {
			return &InvalidTransitionError{OrderID: orderID, From: from, To: to}
		}

		if err := syncPayment(ctx, r.Payments(), o); err != nil {
			return err
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   auditJSON(map[string]interface{}{"status": from}),
			AfterJSON:    auditJSON(map[string]interface{}{"status": to}),
			CreatedAt:    now,
		}); err != nil {
			return fmt.Errorf("create audit log: %w", err)
		}

		out, err = loadOrderOutput(ctx, r, o)
		return err
	})

	if err != nil {
		var ise *InsufficientStockError
		if errors.As(err, &ise) {
			u.logger.Warnj(log.JSON{
				"event":     "order_approval_rejected",
				"order_id":  orderID,
				"book_id":   ise.BookID,
				"requested": ise.Requested,
				"available": ise.Available,
			})
		}
		return OrderOutput{}, err
	}

	u.logger.Infoj(log.JSON{
		"event":    "order_status_changed",
		"order_id": orderID,
		"from":     from,
		"to":       to,
		"actor_id": actor.UserID,
	})
	return out, nil
}

// applyStock は明細を書籍ID昇順で AdjustStock する。
// 1件でも失敗したら error を返し、呼び出し元の Tx ごと巻き戻す。
func applyStock(ctx context.Context, books repo.BookRepository, items []model.OrderItem, delta func(qty int64) model.StockDelta) error {
	qty := map[int64]int64{}
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if _, ok := qty[it.BookID]; !ok {
			ids = append(ids, it.BookID)
		}
		qty[it.BookID] += it.Quantity
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		d := delta(qty[id])
		ok, err := books.AdjustStock(ctx, id, d)
		if err != nil {
			return fmt.Errorf("adjust stock of book %d: %w", id, err)
		}
		if ok {
			continue
		}
		if d.Available >= 0 {
			//戻し側で失敗するのはカウンタの不整合
			return fmt.Errorf("adjust stock of book %d: counters would go negative", id)
		}

		var available int64
		b, err := books.FindByID(ctx, id)
		if err == nil {
			available = b.AvailableCount
		} else if !errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("find book: %w", err)
		}
		requested := qty[id]
		return &InsufficientStockError{
			BookID:    id,
			Requested: requested,
			Available: available,
			Shortfall: requested - available,
		}
	}
	return nil
}

// 注文ステータスに支払いを合わせる
func syncPayment(ctx context.Context, payments repo.PaymentRepository, o model.Order) error {
	var err error
	switch {
	case o.Status == model.OrderStatusCanceled:
		_, err = payments.UpdateStatusFrom(ctx, o.ID, model.PaymentStatusPending, model.PaymentStatusCanceled)
	case o.Status == model.OrderStatusCompleted && o.PaymentMethod == model.PaymentMethodCOD:
		//代引きは受け取り完了で支払い済み
		_, err = payments.UpdateStatusFrom(ctx, o.ID, model.PaymentStatusPending, model.PaymentStatusPaid)
	}
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}

func loadOrderOutput(ctx context.Context, r repo.TxRepos, o model.Order) (OrderOutput, error) {
	items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, fmt.Errorf("list order items: %w", err)
	}
	p, err := r.Payments().FindByOrderID(ctx, o.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return toOrderOutput(o, items, nil), nil
	}
	if err != nil {
		return OrderOutput{}, fmt.Errorf("find payment: %w", err)
	}
	return toOrderOutput(o, items, &p), nil
}

func toOrderOutput(o model.Order, items []model.OrderItem, p *model.Payment) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			BookID:     it.BookID,
			Title:      it.TitleSnapshot,
			Price:      it.PriceAtTime,
			Quantity:   it.Quantity,
			Discount:   it.DiscountValue,
			DiscountID: it.DiscountID,
			LineTotal:  it.LineTotal(),
		})
	}

	out := OrderOutput{
		ID:               o.ID,
		Code:             o.Code,
		CustomerID:       o.CustomerID,
		EmployeeID:       o.EmployeeID,
		Status:           string(o.Status),
		PaymentMethod:    string(o.PaymentMethod),
		Note:             o.Note,
		ShippingSnapshot: o.ShippingSnapshot,
		Subtotal:         o.Subtotal,
		ShippingFee:      o.ShippingFee,
		Discount:         o.Discount,
		Total:            o.Total,
		DiscountID:       o.DiscountID,
		OrderedAt:        o.OrderedAt,
		ApprovedAt:       o.ApprovedAt,
		CanceledAt:       o.CanceledAt,
		DeliveredAt:      o.DeliveredAt,
		CompletedAt:      o.CompletedAt,
		Items:            outItems,
	}
	if p != nil {
		out.PaymentStatus = string(p.Status)
	}
	return out
}

// 業務エラー（リトライや再検索の対象外）
func isDomainError(err error) bool {
	var (
		he  *HTTPError
		ece *EmptyCartError
		nfe *NotFoundError
		dve *DiscountValidationError
	)
	return errors.As(err, &he) || errors.As(err, &ece) || errors.As(err, &nfe) || errors.As(err, &dve)
}
