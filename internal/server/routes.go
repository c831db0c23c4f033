package server

import (
	"net/http"

	"bookstore/internal/config"
	"bookstore/internal/handler"
	"bookstore/internal/middleware"
	"bookstore/internal/repository"
	"bookstore/internal/usecase"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Books        *handler.BookHandler
	Cart         *handler.CartHandler
	Orders       *handler.OrderHandler
	AdminOrders  *handler.AdminOrderHandler
	Discounts    *handler.DiscountHandler
	StockImports *handler.StockImportHandler
	Addresses    *handler.AddressHandler
	AdminUsers   *handler.AdminUserHandler
}

func buildHandlers(d Deps) Handlers {
	s := d.Config
	resolver := usecase.NewDiscountResolver()

	orderUC := usecase.NewOrderUsecase(d.Tx, resolver, d.Clock, d.IDs, d.Logger, usecase.OrderSettings{
		ShippingFee:          s.ShippingFee,
		RestoreStockOnCancel: s.RestoreStockOnCancel,
	})
	adminOrderUC := usecase.NewAdminOrderUsecase(d.Tx, orderUC)
	paymentUC := usecase.NewPaymentUsecase(d.Repos, d.Gateways, d.Logger)
	bookUC := usecase.NewBookUsecase(d.Repos.Books, d.Repos.Discounts, resolver, d.Clock)
	cartUC := usecase.NewCartUsecase(d.Repos.CartItems, d.Repos.Books)
	discountUC := usecase.NewDiscountUsecase(d.Tx, d.Repos.Discounts, d.Clock, d.Logger)
	stockUC := usecase.NewStockImportUsecase(d.Tx, d.Repos, d.Clock, d.Logger)
	addressUC := usecase.NewAddressUsecase(d.Tx, d.Repos.Addresses, d.Clock)
	userUC := usecase.NewUserUsecase(d.Tx, d.Clock, d.Logger)
	auditUC := usecase.NewAuditLogUsecase(d.Repos.AuditLogs)

	return Handlers{
		Books:        handler.NewBookHandler(bookUC),
		Cart:         handler.NewCartHandler(cartUC),
		Orders:       handler.NewOrderHandler(orderUC, paymentUC),
		AdminOrders:  handler.NewAdminOrderHandler(adminOrderUC),
		Discounts:    handler.NewDiscountHandler(discountUC),
		StockImports: handler.NewStockImportHandler(stockUC),
		Addresses:    handler.NewAddressHandler(addressUC),
		AdminUsers:   handler.NewAdminUserHandler(s, d.Repos.Users, userUC, auditUC),
	}
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	h.Books.RegisterRoutes(e, cfg, userRepo)
	h.Cart.RegisterRoutes(e, cfg, userRepo)
	h.Orders.RegisterRoutes(e, cfg, userRepo)
	h.AdminOrders.RegisterRoutes(e, cfg, userRepo)
	h.Discounts.RegisterRoutes(e, cfg, userRepo)
	h.StockImports.RegisterRoutes(e, cfg, userRepo)
	h.AdminUsers.RegisterRoutes(e)

	//ログイン必須のグループ
	me := e.Group("/me", middleware.AuthJWT(cfg.JWTSecret), middleware.TokenVersionGuard(userRepo))
	h.Addresses.RegisterRoutes(me)
}
