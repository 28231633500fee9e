package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	"app/internal/infra/events"
	"app/internal/infra/metrics"
	infrarepo "app/internal/infra/repository"
	"app/internal/server"
	"app/internal/usecase"
)

// 注文番号。uuid先頭8桁を大文字にしてORD-を付ける。
type uuidOrderNumberGen struct{}

func (uuidOrderNumberGen) Next() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}

func main() {
	//.envは無くてもよい（本番は環境変数直指定）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
		&model.Address{},
		&model.RefreshToken{},
		&model.RevokedToken{},
		&model.AuditLog{},
		&model.InventoryAdjustment{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	//repository
	txManager := infrarepo.NewTxManagerGorm(gormDB)
	productRepo := infrarepo.NewProductGormRepository(gormDB)
	categoryRepo := infrarepo.NewCategoryGormRepository(gormDB)
	//カートと明細は同じ実装が両方のinterfaceを満たす
	cartRepo := infrarepo.NewCartGormRepository(gormDB)
	addressRepo := infrarepo.NewAddressGormRepository(gormDB)
	userRepo := infrarepo.NewUserGormRepository(gormDB)
	refreshTokenRepo := infrarepo.NewRefreshTokenGormRepository(gormDB)
	revokedTokenRepo := infrarepo.NewRevokedTokenGormRepository(gormDB)
	auditLogRepo := infrarepo.NewAuditLogGormRepository(gormDB)

	//infra
	publisher := events.NewKafkaPublisher(cfg.KafkaBrokers)
	serverMetrics := metrics.NewServerMetrics("api")

	//usecase
	authUC := usecase.NewAuthUsecase(userRepo, refreshTokenRepo, revokedTokenRepo, cfg.JWTSecret)
	userUC := usecase.NewUserUsecase(userRepo, authUC)
	productUC := usecase.NewProductUsecase(productRepo, categoryRepo, txManager, auditLogRepo, cfg)
	cartUC := usecase.NewCartUsecase(cartRepo, cartRepo, productRepo, cfg)
	orderUC := usecase.NewOrderUsecase(txManager, addressRepo, uuidOrderNumberGen{}, publisher, cfg)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, auditLogRepo, publisher)
	addressUC := usecase.NewAddressUsecase(addressRepo, cfg)

	e := server.New(server.Deps{
		Cfg:           cfg,
		Metrics:       serverMetrics,
		RevokedTokens: revokedTokenRepo,

		Auth:         handler.NewAuthHandler(authUC),
		User:         handler.NewUserHandler(userUC),
		Product:      handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Cart:         handler.NewCartHandler(cartUC),
		Order:        handler.NewOrderHandler(orderUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		Address:      handler.NewAddressHandler(addressUC),
	})

	//失効ストアの掃除（1時間ごと）
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := revokedTokenRepo.DeleteExpired(context.Background(), time.Now()); err != nil {
				log.Printf("revoked token cleanup failed: %v", err)
			} else if n > 0 {
				log.Printf("revoked token cleanup: removed %d", n)
			}
		}
	}()

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}
