package main

import (
	"shopapi/internal/config"
	"shopapi/internal/domain/model"
	"shopapi/internal/handler"
	"shopapi/internal/infra/db"
	"shopapi/internal/infra/logger"
	infraRepo "shopapi/internal/infra/repository"
	"shopapi/internal/server"
	"shopapi/internal/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	//.envはあれば読む（本番は環境変数だけで動かす）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal("failed to connect database", zap.Error(err))
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderNote{},
		&model.AuditLog{},
	); err != nil {
		log.Fatal("failed to migrate", zap.Error(err))
	}

	//Repository（GORM実装）生成
	txManager := infraRepo.NewTxManagerGorm(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)

	//Usecase生成
	orderUC := usecase.NewOrderUsecase(txManager)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, auditRepo)
	invoiceUC := usecase.NewInvoiceUsecase(txManager)

	//Handler生成
	orderH := handler.NewOrderHandler(orderUC, invoiceUC, log)
	adminOrderH := handler.NewAdminOrderHandler(adminOrderUC, log)

	//Server起動
	e := server.New(log)
	orderH.RegisterRoutes(e, cfg)
	adminOrderH.RegisterRoutes(e, cfg)

	addr := ":" + cfg.Port
	log.Info("starting server", zap.String("addr", addr), zap.String("env", cfg.GoEnv))
	if err := e.Start(addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
