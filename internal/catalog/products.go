package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/supportbot/internal/core/error"
)

// FuzzyCutoff is the minimum similarity for a fuzzy product match.
const FuzzyCutoff = 0.6

const productColumns = `id, name, category, description, price, currency, stock_quantity`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(r rowScanner) (model.ProductInfo, error) {
	var p model.ProductInfo
	if err := r.Scan(&p.ID, &p.Name, &p.Category, &p.Description, &p.Price, &p.Currency, &p.StockQuantity); err != nil {
		return p, err
	}
	p.InStock = p.StockQuantity > 0
	return p, nil
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]model.ProductInfo, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	defer rows.Close()

	var out []model.ProductInfo
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", errx.WrapSQL(err))
		}
		out = append(out, p)
	}
	return out, errx.WrapSQL(rows.Err())
}

// SearchProduct implements model.ProductCatalog. It tries an exact name,
// then a substring match, then a fuzzy match over all names.
func (s *Store) SearchProduct(ctx context.Context, name string) (*model.ProductInfo, error) {
	q := strings.ToLower(strings.TrimSpace(name))
	if q == "" {
		return nil, nil
	}

	exact, err := s.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE lower(name) = ? LIMIT 1`, q)
	if err != nil {
		return nil, fmt.Errorf("exact product search: %w", err)
	}
	if len(exact) > 0 {
		exact[0].MatchType = "exact"
		return &exact[0], nil
	}

	partial, err := s.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE instr(lower(name), ?) > 0 OR instr(?, lower(name)) > 0
		 ORDER BY stock_quantity > 0 DESC, length(name) ASC LIMIT 1`, q, q)
	if err != nil {
		return nil, fmt.Errorf("partial product search: %w", err)
	}
	if len(partial) > 0 {
		partial[0].MatchType = "partial"
		return &partial[0], nil
	}

	all, err := s.queryProducts(ctx, `SELECT `+productColumns+` FROM products`)
	if err != nil {
		return nil, fmt.Errorf("fuzzy product search: %w", err)
	}
	var (
		best      *model.ProductInfo
		bestScore float64
	)
	for i := range all {
		score := similarity(q, strings.ToLower(all[i].Name))
		if score >= FuzzyCutoff && score > bestScore {
			best, bestScore = &all[i], score
		}
	}
	if best != nil {
		best.MatchType = "fuzzy"
	}
	return best, nil
}

// ListAvailable implements model.ProductCatalog.
func (s *Store) ListAvailable(ctx context.Context, limit int) ([]model.ProductInfo, error) {
	if limit <= 0 {
		limit = 10
	}
	out, err := s.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE stock_quantity > 0 ORDER BY name LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}
