package main

import (
	"store/internal/auth"
	"store/internal/config"
	"store/internal/domain/model"
	"store/internal/event"
	"store/internal/handler"
	"store/internal/infra/db"
	infraRepo "store/internal/infra/repository"
	"store/internal/logging"
	"store/internal/usecase"
	"store/internal/validator"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

func main() {
	//.envは無くてもよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		panic(err)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Address{},
		&model.Product{},
		&model.ProductVariant{},
		&model.Cart{},
		&model.CartItem{},
		&model.Wishlist{},
		&model.WishlistItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Invoice{},
		&model.Coupon{},
		&model.AuditLog{},
	); err != nil {
		panic(err)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	variantRepo := infraRepo.NewVariantGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	wishlistRepo := infraRepo.NewWishlistGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	invoiceRepo := infraRepo.NewInvoiceGormRepository(gormDB)
	couponRepo := infraRepo.NewCouponGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//注文イベント（RabbitMQ未設定なら発行しない）
	var publisher event.Publisher = event.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		p, err := event.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			logger.Warn("rabbitmq unavailable, order events disabled", "error", err)
		} else {
			defer p.Close()
			publisher = p
		}
	}

	//usecaseに渡す部品
	issuer := auth.NewJWTIssuer(cfg.JWTSecret)
	authValidator := validator.NewAuthValidator()

	//Usecase生成
	authUC := usecase.NewAuthUsecase(userRepo, issuer, authValidator)
	addressUC := usecase.NewAddressUsecase(addressRepo)
	productUC := usecase.NewProductUsecase(productRepo, variantRepo, inventoryRepo, auditRepo, logger)
	cartUC := usecase.NewCartUsecase(cartRepo, cartItemRepo, variantRepo, productRepo)
	wishlistUC := usecase.NewWishlistUsecase(wishlistRepo, variantRepo, productRepo)
	couponUC := usecase.NewCouponUsecase(couponRepo, auditRepo)
	orderUC := usecase.NewOrderUsecase(
		txManager,
		orderRepo,
		orderItemRepo,
		invoiceRepo,
		addressRepo,
		couponRepo,
		cartRepo,
		variantRepo,
		productRepo,
		userRepo,
		publisher,
		logger,
	)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, userRepo, auditRepo, orderUC)

	//Handler生成・ルート登録
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	handler.NewAuthHandler(authUC).RegisterRoutes(e, cfg)
	handler.NewAddressHandler(addressUC).RegisterRoutes(e, cfg)
	handler.NewProductHandler(productUC).RegisterRoutes(e)
	handler.NewAdminProductHandler(productUC).RegisterRoutes(e, cfg)
	handler.NewCartHandler(cartUC).RegisterRoutes(e, cfg)
	handler.NewWishlistHandler(wishlistUC).RegisterRoutes(e, cfg)
	handler.NewCouponHandler(couponUC).RegisterRoutes(e, cfg)
	handler.NewOrderHandler(orderUC).RegisterRoutes(e, cfg)
	handler.NewAdminOrderHandler(adminOrderUC).RegisterRoutes(e, cfg)

	//Server起動
	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	logger.Info("server starting", "addr", addr, "env", cfg.GoEnv)
	if err := e.Start(addr); err != nil {
		logger.Error("server stopped", "error", err)
	}
}
