// Command seed-db loads the storefront with a starter catalog: products,
// themed boxes, discount codes, and an admin account. Everything is upserted,
// so re-running against an existing database is safe.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/curatedcrate/storefront/internal/auth"
	"github.com/curatedcrate/storefront/internal/domain/product"
	"github.com/curatedcrate/storefront/internal/repository"
)

type seedProduct struct {
	id       string
	name     string
	desc     string
	price    string
	category product.Category
	stock    int
	images   []string
}

type seedBox struct {
	id       string
	name     string
	desc     string
	price    string
	products []string
}

type seedDiscount struct {
	code    string
	kind    string
	value   string
	maxUses int
}

var seedProducts = []seedProduct{
	{"5bc91dd0-71a6-4b0d-b3f7-9b2f3b2c1a01", "Single-Origin Coffee Sampler", "Three 100g bags from rotating roasters", "24.00", product.CategoryGourmet, 120, []string{"/images/coffee-sampler.jpg"}},
	{"5bc91dd0-71a6-4b0d-b3f7-9b2f3b2c1a02", "Dark Chocolate Trio", "70%, 82% and 90% single-estate bars", "18.50", product.CategoryGourmet, 200, []string{"/images/chocolate-trio.jpg"}},
	{"5bc91dd0-71a6-4b0d-b3f7-9b2f3b2c1a03", "Herbal Tea Collection", "Eight caffeine-free loose-leaf blends", "16.00", product.CategoryWellness, 150, []string{"/images/tea-collection.jpg"}},
	{"5bc91dd0-71a6-4b0d-b3f7-9b2f3b2c1a04", "Lavender Bath Soak", "Epsom salt soak with dried lavender", "12.00", product.CategoryWellness, 90, []string{"/images/bath-soak.jpg"}},
	{"5bc91dd0-71a6-4b0d-b3f7-9b2f3b2c1a05", "Linen-Bound Notebook", "A5 dot grid, 192 pages", "14.00", product.CategoryStationery, 300, []string{"/images/notebook.jpg"}},
	{"5bc91dd0-71a6-4b0d-b3f7-9b2f3b2c1a06", "Brass Fountain Pen", "Medium nib with converter", "32.00", product.CategoryStationery, 75, []string{"/images/fountain-pen.jpg"}},
	{"5bc91dd0-71a6-4b0d-b3f7-9b2f3b2c1a07", "Stoneware Pour-Over Set", "Dripper and carafe, matte glaze", "42.00", product.CategoryHomeGoods, 60, []string{"/images/pour-over.jpg"}},
	{"5bc91dd0-71a6-4b0d-b3f7-9b2f3b2c1a08", "Soy Candle - Cedar & Sage", "45 hour burn time", "19.00", product.CategoryHomeGoods, 180, []string{"/images/candle.jpg"}},
	{"5bc91dd0-71a6-4b0d-b3f7-9b2f3b2c1a09", "Merino Beanie", "One size, four colourways", "28.00", product.CategoryApparel, 110, []string{"/images/beanie.jpg"}},
}

var seedBoxes = []seedBox{
	{
		"7dc91dd0-71a6-4b0d-b3f7-9b2f3b2c1b01",
		"Slow Morning Box", "Coffee, chocolate and a pour-over set for unhurried weekends", "72.00",
		[]string{
			"5bc91dd0-71a6-4b0d-b3f7-9b2f3b2c1a01",
			"5bc91dd0-71a6-4b0d-b3f7-9b2f3b2c1a02",
			"5bc91dd0-71a6-4b0d-b3f7-9b2f3b2c1a07",
		},
	},
	{
		"7dc91dd0-71a6-4b0d-b3f7-9b2f3b2c1b02",
		"Wind Down Box", "Tea, a bath soak and a candle for quiet evenings", "40.00",
		[]string{
			"5bc91dd0-71a6-4b0d-b3f7-9b2f3b2c1a03",
			"5bc91dd0-71a6-4b0d-b3f7-9b2f3b2c1a04",
			"5bc91dd0-71a6-4b0d-b3f7-9b2f3b2c1a08",
		},
	},
}

var seedDiscounts = []seedDiscount{
	{"WELCOME10", "percentage", "10", 0},
	{"CRATE5", "fixed", "5.00", 500},
	{"FREESHIP", "free_shipping", "0", 0},
}

func main() {
	var (
		databaseURL   string
		adminEmail    string
		adminPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&adminEmail, "admin-email", "admin@curatedcrate.test", "admin account email")
	flag.StringVar(&adminPassword, "admin-password", "", "admin account password (or CRATE_SEED_ADMIN_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("CRATE_SEED_ADMIN_PASSWORD")
	}
	if adminPassword == "" {
		slog.Error("admin password is required: set --admin-password or CRATE_SEED_ADMIN_PASSWORD")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, adminEmail, adminPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, adminEmail, adminPassword string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := upsertProducts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := upsertBoxes(ctx, pool); err != nil {
		return errors.Wrap(err, "seed themed boxes")
	}
	if err := upsertDiscounts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed discounts")
	}
	if err := upsertAdmin(ctx, pool, adminEmail, adminPassword); err != nil {
		return errors.Wrap(err, "seed admin account")
	}

	return nil
}

func upsertProducts(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("upserting products", slog.Int("count", len(seedProducts)))

	const q = `
		INSERT INTO products (id, name, description, price, images, category, stock, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			images = EXCLUDED.images,
			category = EXCLUDED.category,
			updated_at = now()`

	for _, p := range seedProducts {
		price, err := decimal.NewFromString(p.price)
		if err != nil {
			return errors.Wrapf(err, "parse price for %s", p.id)
		}
		if _, err := pool.Exec(ctx, q, p.id, p.name, p.desc, price, p.images, string(p.category), p.stock); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.id)
		}
		slog.Info("upserted product", slog.String("id", p.id), slog.String("name", p.name))
	}
	return nil
}

func upsertBoxes(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("upserting themed boxes", slog.Int("count", len(seedBoxes)))

	const upsertBox = `
		INSERT INTO themed_boxes (id, name, description, price, active)
		VALUES ($1, $2, $3, $4, true)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			updated_at = now()`
	const clearContents = `DELETE FROM themed_box_products WHERE box_id = $1`
	const insertContent = `INSERT INTO themed_box_products (box_id, product_id, position) VALUES ($1, $2, $3)`

	for _, b := range seedBoxes {
		price, err := decimal.NewFromString(b.price)
		if err != nil {
			return errors.Wrapf(err, "parse price for %s", b.id)
		}
		if _, err := pool.Exec(ctx, upsertBox, b.id, b.name, b.desc, price); err != nil {
			return errors.Wrapf(err, "upsert themed box %s", b.id)
		}
		if _, err := pool.Exec(ctx, clearContents, b.id); err != nil {
			return errors.Wrapf(err, "clear contents of %s", b.id)
		}
		for i, productID := range b.products {
			if _, err := pool.Exec(ctx, insertContent, b.id, productID, i); err != nil {
				return errors.Wrapf(err, "add product %s to %s", productID, b.id)
			}
		}
		slog.Info("upserted themed box", slog.String("id", b.id), slog.String("name", b.name))
	}
	return nil
}

func upsertDiscounts(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("upserting discounts", slog.Int("count", len(seedDiscounts)))

	const q = `
		INSERT INTO discounts (code, kind, value, max_uses, active)
		VALUES ($1, $2, $3, $4, true)
		ON CONFLICT (code) DO UPDATE SET
			kind = EXCLUDED.kind,
			value = EXCLUDED.value,
			max_uses = EXCLUDED.max_uses,
			active = true`

	for _, d := range seedDiscounts {
		value, err := decimal.NewFromString(d.value)
		if err != nil {
			return errors.Wrapf(err, "parse value for %s", d.code)
		}
		if _, err := pool.Exec(ctx, q, d.code, d.kind, value, d.maxUses); err != nil {
			return errors.Wrapf(err, "upsert discount %s", d.code)
		}
		slog.Info("upserted discount", slog.String("code", d.code), slog.String("kind", d.kind))
	}
	return nil
}

func upsertAdmin(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	slog.Info("seeding admin account", slog.String("email", email))

	hash, err := auth.HashPassword(password)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}

	const q = `
		INSERT INTO users (id, email, password_hash, name, role)
		VALUES ($1, lower($2), $3, 'Store Admin', 'admin')
		ON CONFLICT (email) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			role = 'admin',
			updated_at = now()`

	if _, err := pool.Exec(ctx, q, uuid.New().String(), email, hash); err != nil {
		return errors.Wrap(err, "upsert admin user")
	}
	return nil
}
