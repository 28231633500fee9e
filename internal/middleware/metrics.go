package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"app/internal/infra/metrics"
)

// Metricsはリクエスト数とレイテンシを記録する。
// handlerラベルはルートパターン（/products/:id）で、実パスは使わない。
func Metrics(m *metrics.ServerMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			handler := c.Path()
			if handler == "" {
				handler = "unknown"
			}

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			m.Requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
			m.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))

			return err
		}
	}
}
