package server

import "github.com/labstack/echo/v4"

func registerRoutes(e *echo.Echo, d Deps) {
	secret := d.Cfg.JWTSecret

	d.Product.RegisterRoutes(e)
	d.Auth.RegisterRoutes(e, secret, d.RevokedTokens)
	d.User.RegisterRoutes(e, secret, d.RevokedTokens)
	d.Cart.RegisterRoutes(e, secret, d.RevokedTokens)
	d.Order.RegisterRoutes(e, secret, d.RevokedTokens)
	d.Address.RegisterRoutes(e, secret, d.RevokedTokens)
	d.AdminProduct.RegisterRoutes(e, secret, d.RevokedTokens)
	d.AdminOrder.RegisterRoutes(e, secret, d.RevokedTokens)
}
