package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kevin07696/chit-service/internal/adapters/postgres"
	"github.com/kevin07696/chit-service/internal/auth"
	"github.com/kevin07696/chit-service/internal/config"
	"github.com/kevin07696/chit-service/internal/domain"
)

const tokenIssuer = "chit-service"

func main() {
	_ = godotenv.Load()

	keysDir := flag.String("keys", "./keys", "directory for the JWT signing keypair")
	tokenTTL := flag.Duration("token-ttl", 30*24*time.Hour, "lifetime of the issued merchant token")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbCfg := config.DatabaseFromEnv()
	db, err := postgres.Connect(ctx, postgres.DefaultConfig(dbCfg.ConnectionString()), logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	merchant, plan, err := seed(ctx, db, time.Now().UTC())
	if err != nil {
		logger.Fatal("Failed to seed data", zap.Error(err))
	}

	issuer, err := loadOrCreateIssuer(*keysDir, *tokenTTL)
	if err != nil {
		logger.Fatal("Failed to prepare signing keys", zap.Error(err))
	}
	token, err := issuer.Issue(merchant.ID, "seed-dashboard")
	if err != nil {
		logger.Fatal("Failed to issue token", zap.Error(err))
	}

	fmt.Println("========================================")
	fmt.Println("SEED DATA CREATED")
	fmt.Println("========================================")
	fmt.Printf("Merchant:  %s (%s, expires %s)\n", merchant.ID, merchant.Tier, merchant.SubscriptionExpiryDate.Format("2006-01-02"))
	fmt.Printf("Plan:      %s %s / %d months = %s monthly\n", plan.ID, plan.TotalAmount, plan.DurationMonths, plan.MonthlyAmount)
	fmt.Printf("Keys:      %s\n", *keysDir)
	fmt.Println()
	fmt.Println("Bearer token:")
	fmt.Println(token)
	fmt.Println("========================================")
}

func seed(ctx context.Context, db *postgres.DB, now time.Time) (*domain.MerchantAccount, *domain.ChitPlan, error) {
	merchants := postgres.NewMerchantRepository(db)
	plans := postgres.NewChitPlanRepository(db)

	merchant := &domain.MerchantAccount{
		ID:                     uuid.New(),
		Name:                   "Sri Lakshmi Jewellers (Development)",
		Tier:                   domain.TierStandard,
		SubscriptionStatus:     domain.MerchantSubscriptionActive,
		SubscriptionExpiryDate: domain.BillingPeriodYearly.Extend(now),
		KYCVerified:            true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	plan := &domain.ChitPlan{
		ID:         uuid.New(),
		MerchantID: merchant.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	plan.Apply(domain.PlanDraft{
		PlanName:       "Gold Savings 11",
		Description:    "Eleven monthly installments redeemed as gold",
		TotalAmount:    decimal.NewFromInt(50000),
		DurationMonths: 11,
		ReturnType:     domain.ReturnTypeGold,
	})

	err := db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := merchants.Create(ctx, tx, merchant); err != nil {
			return fmt.Errorf("create merchant: %w", err)
		}
		if err := plans.Create(ctx, tx, plan); err != nil {
			return fmt.Errorf("create plan: %w", err)
		}
		return nil
	})
	return merchant, plan, err
}

// loadOrCreateIssuer reuses jwt_private.pem under dir or writes a new keypair
func loadOrCreateIssuer(dir string, ttl time.Duration) (*auth.TokenIssuer, error) {
	privatePath := filepath.Join(dir, "jwt_private.pem")
	publicPath := filepath.Join(dir, "jwt_public.pem")

	privatePEM, err := os.ReadFile(privatePath)
	if errors.Is(err, os.ErrNotExist) {
		privateKey, publicKey, genErr := auth.GenerateRSAKeyPair(2048)
		if genErr != nil {
			return nil, genErr
		}
		publicPEM, pemErr := auth.PublicKeyToPEM(publicKey)
		if pemErr != nil {
			return nil, pemErr
		}
		privatePEM = auth.PrivateKeyToPEM(privateKey)

		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
		if err := os.WriteFile(privatePath, privatePEM, 0o600); err != nil {
			return nil, err
		}
		if err := os.WriteFile(publicPath, publicPEM, 0o644); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	return auth.NewTokenIssuer(privatePEM, tokenIssuer, ttl)
}
