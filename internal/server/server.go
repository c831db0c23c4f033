package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bookstore/internal/config"
	"bookstore/internal/domain/model"
	"bookstore/internal/repository"
	"bookstore/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

// New に渡す部品。ストレージ（postgres / memory）の違いはここで吸収済み。
type Deps struct {
	Config   config.Config
	Tx       repository.TransactionManager
	Repos    repository.Repos
	Logger   *log.Logger
	Gateways map[model.PaymentMethod]usecase.PaymentGateway
	Clock    usecase.Clock
	IDs      usecase.IDGenerator
}

// New はusecase/handlerを組み立てて echo を返す。
func New(d Deps) *echo.Echo {
	if d.Clock == nil {
		d.Clock = usecase.SystemClock{}
	}
	if d.IDs == nil {
		d.IDs = usecase.NewIDGenerator()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger = d.Logger

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			d.Logger.Infoj(log.JSON{
				"event":      "request",
				"request_id": v.RequestID,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
			})
			return nil
		},
	}))

	RegisterRoutes(e, d.Config, d.Repos.Users, buildHandlers(d))
	return e
}

// Start は ctx が終わるまで待ち、終わったらgracefulに止める。
func Start(ctx context.Context, e *echo.Echo, addr string, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		e.Logger.Infoj(log.JSON{"event": "server_started", "addr": addr})
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	e.Logger.Infoj(log.JSON{"event": "server_stopped"})
	return nil
}
