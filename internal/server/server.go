package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"app/internal/config"
	"app/internal/handler"
	appmw "app/internal/middleware"
	"app/internal/infra/metrics"
	"app/internal/repository"
)

// Depsはルーティングに必要な一式
type Deps struct {
	Cfg           config.Config
	Metrics       *metrics.ServerMetrics
	RevokedTokens repository.RevokedTokenRepository

	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Product      *handler.ProductHandler
	AdminProduct *handler.AdminProductHandler
	Cart         *handler.CartHandler
	Order        *handler.OrderHandler
	AdminOrder   *handler.AdminOrderHandler
	Address      *handler.AddressHandler
}

// Newはechoを組み立てて返す。Startは呼び出し側。
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	if d.Metrics != nil {
		e.Use(appmw.Metrics(d.Metrics))
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	registerRoutes(e, d)

	return e
}
