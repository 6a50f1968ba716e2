package mysql

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	domcart "example.com/storefront-checkout/app/internal/domain/cart"
)

// CartRepository reads the storefront cart. Checkout never writes cart lines,
// it only snapshots and clears them.
type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) Snapshot(ctx context.Context, sessionID string) (domcart.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT ci.product_id, p.name, ci.quantity, p.price, COALESCE(p.original_price, p.price)
        FROM cart_items ci
        JOIN products p ON p.id = ci.product_id
        WHERE ci.session_id = ? AND ci.quantity > 0
        ORDER BY ci.id
    `, sessionID)
	if err != nil {
		return domcart.Snapshot{}, err
	}
	defer rows.Close()

	snap := domcart.Snapshot{SessionID: sessionID}
	subtotal, original := decimal.Zero, decimal.Zero
	for rows.Next() {
		var item domcart.Item
		var originalPrice float64
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.UnitPrice, &originalPrice); err != nil {
			return domcart.Snapshot{}, err
		}
		qty := decimal.NewFromInt(item.Quantity)
		subtotal = subtotal.Add(decimal.NewFromFloat(item.UnitPrice).Mul(qty))
		original = original.Add(decimal.NewFromFloat(originalPrice).Mul(qty))
		snap.Items = append(snap.Items, item)
	}
	if err := rows.Err(); err != nil {
		return domcart.Snapshot{}, err
	}
	snap.Subtotal = subtotal.Round(2).InexactFloat64()
	snap.OriginalSubtotal = original.Round(2).InexactFloat64()
	return snap, nil
}

func (r *CartRepository) Clear(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE session_id = ?`, sessionID)
	return err
}
