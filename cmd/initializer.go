package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"kolabBack/internal/config"
	"kolabBack/internal/gateways"
	"kolabBack/internal/handlers"
	"kolabBack/internal/repositories"
	"kolabBack/internal/services"
)

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger
	db       *sql.DB

	jwtSecret []byte

	paymentHandler   *handlers.PaymentHandler
	webhookHandler   *handlers.WebhookHandler
	payoutHandler    *handlers.PayoutHandler
	milestoneHandler *handlers.MilestoneHandler

	milestoneService *services.MilestoneService
	paymentService   *services.PaymentService
}

func initializeApp(db *sql.DB, rdb *redis.Client, cfg config.Config, errorLog, infoLog *log.Logger) *application {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Repositories
	campaignRepo := &repositories.CampaignRepository{DB: db}
	milestoneRepo := &repositories.MilestoneRepository{DB: db}
	transactionRepo := &repositories.TransactionRepository{DB: db}
	payoutRepo := &repositories.PayoutRepository{DB: db}
	withdrawalRepo := &repositories.WithdrawalRepository{DB: db}
	beneficiaryRepo := &repositories.BeneficiaryRepository{DB: db}
	paymentMethodRepo := &repositories.PaymentMethodRepository{DB: db}
	invoiceRepo := &repositories.InvoiceRepo{DB: db}
	brandRepo := &repositories.BrandRepository{DB: db}
	creatorRepo := &repositories.CreatorRepository{DB: db}
	webhookRepo := &repositories.WebhookRepository{DB: db, RDB: rdb}

	// Gateway clients. A variant with missing credentials is left out of
	// the router; its currencies cannot be charged on this deployment.
	var clients []gateways.Client
	var paystack *gateways.Paystack
	if cfg.Paystack.SecretKey != "" {
		var err error
		paystack, err = gateways.NewPaystack(gateways.PaystackConfig{
			SecretKey:   cfg.Paystack.SecretKey,
			BaseURL:     cfg.Paystack.BaseURL,
			CallbackURL: cfg.Paystack.CallbackURL,
			Logger:      logger,
		})
		if err != nil {
			errorLog.Fatal(err)
		}
		clients = append(clients, paystack)
	} else {
		infoLog.Println("paystack credentials missing, NGN payments disabled")
	}
	var truelayer *gateways.TrueLayer
	if cfg.TrueLayer.ClientID != "" {
		var err error
		truelayer, err = gateways.NewTrueLayer(gateways.TrueLayerConfig{
			ClientID:      cfg.TrueLayer.ClientID,
			ClientSecret:  cfg.TrueLayer.ClientSecret,
			WebhookSecret: cfg.TrueLayer.WebhookSecret,
			BaseURL:       cfg.TrueLayer.BaseURL,
			HppURL:        cfg.TrueLayer.HppURL,
			ReturnURL:     cfg.TrueLayer.ReturnURL,
			Logger:        logger,
		})
		if err != nil {
			errorLog.Fatal(err)
		}
		clients = append(clients, truelayer)
	} else {
		infoLog.Println("truelayer credentials missing, GBP payments disabled")
	}
	var nium *gateways.Nium
	if cfg.Nium.APIKey != "" {
		var err error
		nium, err = gateways.NewNium(gateways.NiumConfig{
			APIKey:        cfg.Nium.APIKey,
			ClientSecret:  cfg.Nium.ClientSecret,
			WebhookSecret: cfg.Nium.WebhookSecret,
			BaseURL:       cfg.Nium.BaseURL,
			SuccessURL:    cfg.Nium.SuccessURL,
			FailureURL:    cfg.Nium.FailureURL,
			Logger:        logger,
		})
		if err != nil {
			errorLog.Fatal(err)
		}
		clients = append(clients, nium)
	} else {
		infoLog.Println("nium credentials missing, default-route payments disabled")
	}
	router := gateways.NewRouter(clients...)

	notifier := &services.NotificationService{
		Client: newMessagingClient(cfg, errorLog, infoLog),
		Logger: logger,
	}
	fees := services.FeeCalculator{
		PlatformPercent: cfg.Fees.PlatformPercent,
		PayeePercent:    cfg.Fees.PayeePercent,
	}

	payoutService := &services.PayoutService{
		Payouts:       payoutRepo,
		Withdrawals:   withdrawalRepo,
		Beneficiaries: beneficiaryRepo,
		Creators:      creatorRepo,
		Campaigns:     campaignRepo,
		Router:        router,
		Fees:          fees,
		Notifier:      notifier,
		MaxAttempts:   cfg.Payouts.MaxAttempts,
		RetryDelay:    time.Duration(cfg.Payouts.RetryDelaySec) * time.Second,
		Logger:        logger,
	}
	if paystack != nil {
		payoutService.Paystack = paystack
	}
	if truelayer != nil {
		payoutService.TrueLayer = truelayer
	}
	if nium != nil {
		payoutService.Nium = nium
	}

	paymentService := &services.PaymentService{
		Campaigns:      campaignRepo,
		Milestones:     milestoneRepo,
		Transactions:   transactionRepo,
		PaymentMethods: paymentMethodRepo,
		Invoices:       invoiceRepo,
		Brands:         brandRepo,
		Creators:       creatorRepo,
		Gateways:       router,
		Payouts:        payoutService,
		PayoutSums:     payoutRepo,
		Fees:           fees,
		Notifier:       notifier,
		Logger:         logger,
	}

	milestoneService := &services.MilestoneService{
		Milestones:  milestoneRepo,
		Campaigns:   campaignRepo,
		Charger:     paymentService,
		Fees:        fees,
		Brands:      brandRepo,
		Notifier:    notifier,
		ChargeDelay: time.Duration(cfg.Payouts.ChargeDelayMSec) * time.Millisecond,
		Logger:      logger,
	}

	return &application{
		errorLog:         errorLog,
		infoLog:          infoLog,
		db:               db,
		jwtSecret:        []byte(cfg.JWT.Secret),
		paymentHandler:   handlers.NewPaymentHandler(paymentService),
		webhookHandler:   handlers.NewWebhookHandler(paymentService, payoutService, webhookRepo, logger),
		payoutHandler:    handlers.NewPayoutHandler(payoutService, beneficiaryRepo),
		milestoneHandler: handlers.NewMilestoneHandler(milestoneService),
		milestoneService: milestoneService,
		paymentService:   paymentService,
	}
}

// newMessagingClient builds the FCM sender. Push notifications are
// optional: without credentials the notifier degrades to log-only.
func newMessagingClient(cfg config.Config, errorLog, infoLog *log.Logger) *messaging.Client {
	if cfg.Firebase.CredentialsFile == "" {
		infoLog.Println("firebase credentials missing, push notifications disabled")
		return nil
	}
	ctx := context.Background()
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	if err != nil {
		errorLog.Printf("firebase init: %v", err)
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		errorLog.Printf("firebase messaging init: %v", err)
		return nil
	}
	return client
}

func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Printf("Failed to open DB: %v", err)
		return nil, err
	}
	if err = db.Ping(); err != nil {
		log.Printf("Failed to ping DB: %v", err)
		return nil, err
	}
	db.SetMaxIdleConns(35)
	log.Println("Successfully connected to database")
	return db, nil
}

func openRedis(addr, password string, dbNum int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbNum,
	})
}

func addSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
		w.Header().Set("Cross-Origin-Resource-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}
