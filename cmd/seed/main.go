// Package main provides a CLI tool for seeding the database with a demo catalog and stock.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"backoffice/internal/config"
	"backoffice/internal/core/actor"
	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/auth"
	"backoffice/internal/domain/catalog"
	"backoffice/internal/domain/stock"
	"backoffice/internal/infrastructure/storage/postgres"
	"backoffice/internal/infrastructure/storage/postgres/catalog_repo"
	"backoffice/internal/infrastructure/storage/postgres/stock_repo"
	"backoffice/pkg/logger"
)

// seedNamespace derives stable IDs so repeated runs update rather than duplicate.
var seedNamespace = uuid.MustParse("5f0c7c1e-8a59-4c8e-9d2b-0f4a1c3e7b21")

func seedID(name string) id.ID {
	return uuid.NewSHA1(seedNamespace, []byte(name))
}

type productSeed struct {
	sku      string
	name     string
	price    string
	cost     string
	variants []variantSeed
	stock    int64
}

type variantSeed struct {
	sku   string
	name  string
	price string
	stock int64
}

var demoProducts = []productSeed{
	{sku: "MUG-001", name: "Ceramic mug", price: "12.00", cost: "4.50", stock: 120},
	{sku: "TEE-001", name: "Cotton t-shirt", price: "25.00", cost: "9.00", variants: []variantSeed{
		{sku: "TEE-001-S", name: "Small", stock: 40},
		{sku: "TEE-001-M", name: "Medium", stock: 60},
		{sku: "TEE-001-XL", name: "Extra large", price: "27.00", stock: 15},
	}},
	{sku: "BAG-001", name: "Canvas tote bag", price: "18.50", cost: "6.25", stock: 75},
	{sku: "NB-001", name: "Dotted notebook", price: "9.90", cost: "2.10", stock: 0},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)
	catalogRepo := catalog_repo.NewCatalogRepo(txManager)
	stockRepo := stock_repo.NewStockRepo(txManager)
	stockService := stock.NewService(stockRepo, stock.NewLedger(stockRepo, cfg.StockPolicy), txManager)

	warehouseID := seedID("warehouse:main")
	if raw := os.Getenv("SEED_WAREHOUSE_ID"); raw != "" {
		if warehouseID, err = id.Parse(raw); err != nil {
			log.Fatalw("invalid SEED_WAREHOUSE_ID", "error", err)
		}
	}

	for _, p := range demoProducts {
		if err := seedProduct(ctx, catalogRepo, stockService, warehouseID, p); err != nil {
			log.Fatalw("failed to seed product", "sku", p.sku, "error", err)
		}
	}
	log.Infow("demo catalog seeded", "products", len(demoProducts), "warehouse_id", warehouseID)

	if os.Getenv("SEED_PRINT_TOKEN") == "true" {
		jwtService := auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret))
		token, expiresAt, err := jwtService.GenerateAccessToken(auth.Subject{
			UserID:  seedID("user:admin"),
			Email:   "admin@backoffice.local",
			IsAdmin: true,
		})
		if err != nil {
			log.Fatalw("failed to issue token", "error", err)
		}
		fmt.Printf("Authorization: Bearer %s\n(expires %s)\n", token, expiresAt.Format("2006-01-02 15:04:05"))
	}

	log.Info("seeding completed successfully")
}

func seedProduct(ctx context.Context, repo *catalog_repo.CatalogRepo, stockService *stock.Service, warehouseID id.ID, p productSeed) error {
	price, err := types.NewMoneyFromString(p.price)
	if err != nil {
		return err
	}
	cost, err := types.NewMoneyFromString(p.cost)
	if err != nil {
		return err
	}

	product := catalog.Product{
		ID:       seedID("product:" + p.sku),
		SKU:      p.sku,
		Name:     p.name,
		Price:    price,
		Cost:     cost,
		IsActive: true,
	}
	if err := repo.UpsertProduct(ctx, product); err != nil {
		return err
	}

	if len(p.variants) == 0 {
		return topUp(ctx, stockService, stock.Key{ProductID: product.ID, WarehouseID: warehouseID}, p.stock, cost)
	}

	for _, vs := range p.variants {
		variant := catalog.Variant{
			ID:        seedID("variant:" + vs.sku),
			ProductID: product.ID,
			SKU:       vs.sku,
			Name:      vs.name,
		}
		if vs.price != "" {
			vp, err := types.NewMoneyFromString(vs.price)
			if err != nil {
				return err
			}
			variant.Price = &vp
		}
		if err := repo.UpsertVariant(ctx, variant); err != nil {
			return err
		}

		variantID := variant.ID
		key := stock.Key{ProductID: product.ID, VariantID: &variantID, WarehouseID: warehouseID}
		if err := topUp(ctx, stockService, key, vs.stock, cost); err != nil {
			return err
		}
	}
	return nil
}

// topUp adjusts the level at key to target.
func topUp(ctx context.Context, stockService *stock.Service, key stock.Key, target int64, unitCost types.Money) error {
	var current int64
	level, err := stockService.GetLevel(ctx, key)
	switch {
	case err == nil:
		current = level.Quantity
	case apperror.IsNotFound(err):
	default:
		return err
	}

	delta := target - current
	if delta == 0 {
		return nil
	}
	_, err = stockService.Adjust(ctx, stock.AdjustmentInput{
		Key:      key,
		Delta:    delta,
		UnitCost: &unitCost,
		Note:     "Seed stock",
	}, actor.System())
	return err
}
