package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domcoupon "example.com/storefront-checkout/app/internal/domain/coupon"
	domorder "example.com/storefront-checkout/app/internal/domain/order"
	domproduct "example.com/storefront-checkout/app/internal/domain/product"
)

// OrderRepository places orders directly in the storefront database. It is the
// local stand-in for the order service: prices and coupon are re-read under
// row locks so the stored totals are authoritative.
type OrderRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db, now: time.Now}
}

type orderLine struct {
	productID int64
	name      string
	price     float64
	quantity  int64
}

func (r *OrderRepository) Submit(ctx context.Context, s domorder.Submission) (_ *domorder.Placement, retErr error) {
	if len(s.Items) == 0 {
		return nil, rejected("", domorder.ErrEmptyOrderItems)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unreachable(err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if s.IdempotencyKey != "" {
		existing, err := r.byIdempotencyKey(ctx, tx, s.IdempotencyKey)
		if err == nil {
			_ = tx.Rollback()
			return existing, nil
		}
		if !errors.Is(err, domorder.ErrOrderNotFound) {
			return nil, unreachable(err)
		}
	}

	sum := decimal.Zero
	lines := make([]orderLine, 0, len(s.Items))
	for _, item := range s.Items {
		p, err := lockProduct(ctx, tx, item.ProductID)
		if errors.Is(err, domproduct.ErrProductNotFound) {
			return nil, rejected(fmt.Sprintf("product %d is no longer available", item.ProductID), err)
		}
		if err != nil {
			return nil, unreachable(err)
		}
		if !p.CanFulfil(item.Quantity) {
			return nil, rejected(fmt.Sprintf("%s is out of stock", p.Name), domproduct.ErrOutOfStock)
		}
		sum = sum.Add(decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(item.Quantity)))
		lines = append(lines, orderLine{productID: p.ID, name: p.Name, price: p.Price, quantity: item.Quantity})
	}

	subtotal := sum.Round(2).InexactFloat64()
	var discount float64
	code := domcoupon.NormalizeCode(s.CouponCode)
	if code != "" {
		discount, err = r.redeemCoupon(ctx, tx, code, subtotal)
		if err != nil {
			return nil, err
		}
	}

	totals := domorder.Compute(subtotal, s.ShippingFee, s.TaxAmount, discount)

	billing, err := json.Marshal(s.Billing)
	if err != nil {
		return nil, err
	}
	shipping, err := json.Marshal(s.Shipping)
	if err != nil {
		return nil, err
	}

	createdAt := r.now().UTC()
	number := "ORD-" + strings.ToUpper(uuid.NewString()[:8])
	res, err := tx.ExecContext(ctx, `
        INSERT INTO orders (order_number, session_id, user_id, status, payment_method,
            billing_address, shipping_address, ship_to_different,
            subtotal, shipping_fee, tax_amount, discount_amount, total_amount,
            coupon_code, idempotency_key, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, number, s.SessionID, nullString(s.UserID), domorder.StatusPending, s.PaymentMethod,
		billing, shipping, s.ShipToDifferentAddress,
		totals.Subtotal, totals.ShippingFee, totals.TaxAmount, totals.DiscountAmount, totals.Total,
		nullString(code), nullString(s.IdempotencyKey), createdAt)
	if err != nil {
		return nil, unreachable(err)
	}
	orderID, err := insertedID(res)
	if err != nil {
		return nil, err
	}

	for _, line := range lines {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO order_items (order_id, product_id, product_name, unit_price, quantity)
            VALUES (?, ?, ?, ?, ?)
        `, orderID, line.productID, line.name, line.price, line.quantity); err != nil {
			return nil, unreachable(err)
		}
		if _, err := tx.ExecContext(ctx, `
            UPDATE products SET stock = stock - ?
            WHERE id = ?
        `, line.quantity, line.productID); err != nil {
			return nil, unreachable(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, unreachable(err)
	}

	return &domorder.Placement{
		OrderID:     strconv.FormatInt(orderID, 10),
		OrderNumber: number,
		Status:      domorder.StatusPending,
		Totals:      totals,
		CreatedAt:   createdAt,
	}, nil
}

func lockProduct(ctx context.Context, tx *sql.Tx, id int64) (*domproduct.Product, error) {
	row := tx.QueryRowContext(ctx, `
        SELECT id, name, price, stock, is_active
        FROM products
        WHERE id = ?
        FOR UPDATE
    `, id)
	var p domproduct.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domproduct.ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// redeemCoupon locks the coupon row, re-checks it and bumps its usage count.
func (r *OrderRepository) redeemCoupon(ctx context.Context, tx *sql.Tx, code string, subtotal float64) (float64, error) {
	row := tx.QueryRowContext(ctx, `
        SELECT `+couponColumns+`
        FROM coupons WHERE code = ?
        FOR UPDATE
    `, code)
	c, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, rejected(domcoupon.ErrExpiredOrInvalid.Message, domcoupon.ErrExpiredOrInvalid)
		}
		return 0, unreachable(err)
	}
	if err := checkCoupon(c, subtotal, r.now()); err != nil {
		return 0, rejected(err.Error(), err)
	}
	if _, err := tx.ExecContext(ctx, `
        UPDATE coupons SET usage_count = usage_count + 1 WHERE code = ?
    `, code); err != nil {
		return 0, unreachable(err)
	}
	return domcoupon.ComputeDiscount(c, subtotal), nil
}

func (r *OrderRepository) byIdempotencyKey(ctx context.Context, tx *sql.Tx, key string) (*domorder.Placement, error) {
	row := tx.QueryRowContext(ctx, `
        SELECT id, order_number, status, subtotal, shipping_fee, tax_amount, discount_amount, total_amount, created_at
        FROM orders WHERE idempotency_key = ?
    `, key)

	var p domorder.Placement
	var id int64
	if err := row.Scan(&id, &p.OrderNumber, &p.Status, &p.Totals.Subtotal, &p.Totals.ShippingFee,
		&p.Totals.TaxAmount, &p.Totals.DiscountAmount, &p.Totals.Total, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domorder.ErrOrderNotFound
		}
		return nil, err
	}
	p.OrderID = strconv.FormatInt(id, 10)
	return &p, nil
}

// checkCoupon applies the redemption rules shared by the local applier and the order store.
func checkCoupon(c domcoupon.Coupon, subtotal float64, now time.Time) error {
	if !c.ActiveAt(now) {
		return domcoupon.ErrExpiredOrInvalid
	}
	if c.UsageExhausted() {
		return domcoupon.ErrUsageLimitReached
	}
	if required, short := c.RequiresMoreThan(subtotal); short {
		return domcoupon.MinOrderNotMet(required)
	}
	return nil
}

func rejected(msg string, cause error) error {
	return &domorder.SubmissionError{Kind: domorder.ErrOrderRejected, Message: msg, Err: cause}
}

func insertedID(res sql.Result) (int64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, unreachable(err)
	}
	return id, nil
}

func unreachable(err error) error {
	return &domorder.SubmissionError{Kind: domorder.ErrOrderUnreachable, Err: err}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
