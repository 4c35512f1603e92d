package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

//go:embed seed.yaml
var defaultSeed []byte

const seedDateLayout = "2006-01-02"

// SeedData is the YAML document used to populate an empty catalog.
type SeedData struct {
	Orders    []SeedOrder    `yaml:"orders"`
	Products  []SeedProduct  `yaml:"products"`
	Coupons   []SeedCoupon   `yaml:"coupons"`
	Documents []SeedDocument `yaml:"documents"`
}

type SeedOrder struct {
	ID                string  `yaml:"id"`
	Status            string  `yaml:"status"`
	TrackingNumber    string  `yaml:"tracking_number"`
	OrderDate         string  `yaml:"order_date"`
	EstimatedDelivery string  `yaml:"estimated_delivery"`
	DeliveredAt       string  `yaml:"delivered_at"`
	Total             float64 `yaml:"total"`
	Currency          string  `yaml:"currency"`
}

type SeedProduct struct {
	Name          string  `yaml:"name"`
	Category      string  `yaml:"category"`
	Description   string  `yaml:"description"`
	Price         float64 `yaml:"price"`
	Currency      string  `yaml:"currency"`
	StockQuantity int     `yaml:"stock_quantity"`
}

type SeedCoupon struct {
	Code        string  `yaml:"code"`
	Discount    float64 `yaml:"discount"`
	Description string  `yaml:"description"`
	ExpiresAt   string  `yaml:"expires_at"`
	IsActive    bool    `yaml:"is_active"`
}

type SeedDocument struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Language string `yaml:"language"`
	Content  string `yaml:"content"`
}

// DefaultSeed parses the bundled seed document.
func DefaultSeed() (*SeedData, error) {
	return ParseSeed(defaultSeed)
}

// ParseSeed decodes a YAML seed document.
func ParseSeed(b []byte) (*SeedData, error) {
	var sd SeedData
	if err := yaml.Unmarshal(b, &sd); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &sd, nil
}

func parseSeedDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(seedDateLayout, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Seed inserts the seed rows, leaving existing rows untouched.
func (s *Store) Seed(ctx context.Context, sd *SeedData) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for _, o := range sd.Orders {
		if _, ok := orderStatuses[o.Status]; !ok {
			return fmt.Errorf("order %s: unknown status %q", o.ID, o.Status)
		}
		orderDate, err := parseSeedDate(o.OrderDate)
		if err != nil || orderDate == nil {
			return fmt.Errorf("order %s: invalid order_date %q", o.ID, o.OrderDate)
		}
		eta, err := parseSeedDate(o.EstimatedDelivery)
		if err != nil {
			return fmt.Errorf("order %s: invalid estimated_delivery: %w", o.ID, err)
		}
		delivered, err := parseSeedDate(o.DeliveredAt)
		if err != nil {
			return fmt.Errorf("order %s: invalid delivered_at: %w", o.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO orders (order_id, status, tracking_number, order_date, estimated_delivery, delivered_at, total, currency)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.Status, o.TrackingNumber, orderDate.Unix(), unixOrNull(eta), unixOrNull(delivered), o.Total, currencyOrDefault(o.Currency),
		); err != nil {
			return fmt.Errorf("seed order %s: %w", o.ID, err)
		}
	}

	for _, p := range sd.Products {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO products (name, category, description, price, currency, stock_quantity)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.Name, p.Category, p.Description, p.Price, currencyOrDefault(p.Currency), p.StockQuantity,
		); err != nil {
			return fmt.Errorf("seed product %s: %w", p.Name, err)
		}
	}

	for _, c := range sd.Coupons {
		exp, err := parseSeedDate(c.ExpiresAt)
		if err != nil {
			return fmt.Errorf("coupon %s: invalid expires_at: %w", c.Code, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO coupons (code, discount, description, expires_at, is_active)
			VALUES (?, ?, ?, ?, ?)`,
			strings.ToUpper(c.Code), c.Discount, c.Description, unixOrNull(exp), c.IsActive,
		); err != nil {
			return fmt.Errorf("seed coupon %s: %w", c.Code, err)
		}
	}

	for _, d := range sd.Documents {
		lang := d.Language
		if lang == "" {
			lang = "en"
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO kb_documents (id, title, content, language)
			VALUES (?, ?, ?, ?)`,
			d.ID, d.Title, strings.TrimSpace(d.Content), lang,
		); err != nil {
			return fmt.Errorf("seed document %s: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	logx.Info().
		Int("orders", len(sd.Orders)).
		Int("products", len(sd.Products)).
		Int("coupons", len(sd.Coupons)).
		Int("documents", len(sd.Documents)).
		Msg("catalog seeded")
	return nil
}

func currencyOrDefault(c string) string {
	if c == "" {
		return "USD"
	}
	return strings.ToUpper(c)
}
