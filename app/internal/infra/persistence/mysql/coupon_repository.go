package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domcoupon "example.com/storefront-checkout/app/internal/domain/coupon"
	domorder "example.com/storefront-checkout/app/internal/domain/order"
)

const couponColumns = `code, discount_type, discount_value, min_order_amount, max_discount_amount,
        usage_limit, usage_count, start_date, end_date, is_active`

type CouponRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewCouponRepository(db *sql.DB) *CouponRepository {
	return &CouponRepository{db: db, now: time.Now}
}

// ListActive loads every enabled coupon; the validity window is checked by the caller.
func (r *CouponRepository) ListActive(ctx context.Context) ([]domcoupon.Coupon, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+couponColumns+`
        FROM coupons
        WHERE is_active = 1
        ORDER BY code
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coupons []domcoupon.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*domcoupon.Coupon, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+couponColumns+`
        FROM coupons WHERE code = ?
    `, domcoupon.NormalizeCode(code))
	c, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domcoupon.ErrCouponNotFound
		}
		return nil, err
	}
	return &c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCoupon(s scanner) (domcoupon.Coupon, error) {
	var (
		c                   domcoupon.Coupon
		minOrder, maxAmount sql.NullFloat64
		usageLimit          sql.NullInt64
		start, end          sql.NullTime
	)
	if err := s.Scan(&c.Code, &c.DiscountType, &c.DiscountValue, &minOrder, &maxAmount,
		&usageLimit, &c.UsageCount, &start, &end, &c.IsActive); err != nil {
		return domcoupon.Coupon{}, err
	}
	if minOrder.Valid {
		c.MinOrderAmount = &minOrder.Float64
	}
	if maxAmount.Valid {
		c.MaxDiscountAmount = &maxAmount.Float64
	}
	if usageLimit.Valid {
		c.UsageLimit = &usageLimit.Int64
	}
	if start.Valid {
		c.StartDate = &start.Time
	}
	if end.Valid {
		c.EndDate = &end.Time
	}
	return c, nil
}

// Apply prices a coupon against the cart stored for the session. It is the
// local counterpart of the coupon service; usage is only counted when an
// order is placed.
func (r *CouponRepository) Apply(ctx context.Context, req domcoupon.ApplyRequest) (domcoupon.ApplyResult, error) {
	code := domcoupon.NormalizeCode(req.Code)
	if code == "" {
		return domcoupon.ApplyResult{}, domcoupon.ErrMissingCode
	}
	c, err := r.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domcoupon.ErrCouponNotFound) {
			return domcoupon.ApplyResult{}, domcoupon.ErrExpiredOrInvalid
		}
		return domcoupon.ApplyResult{}, err
	}

	var subtotal float64
	err = r.db.QueryRowContext(ctx, `
        SELECT COALESCE(SUM(p.price * ci.quantity), 0)
        FROM cart_items ci
        JOIN products p ON p.id = ci.product_id
        WHERE ci.session_id = ? AND ci.quantity > 0
    `, req.SessionID).Scan(&subtotal)
	if err != nil {
		return domcoupon.ApplyResult{}, err
	}
	if err := checkCoupon(*c, subtotal, r.now()); err != nil {
		return domcoupon.ApplyResult{}, err
	}

	amount := domcoupon.ComputeDiscount(*c, subtotal)
	return domcoupon.ApplyResult{
		Code:               c.Code,
		DiscountType:       c.DiscountType,
		DiscountValue:      c.DiscountValue,
		DiscountAmount:     amount,
		Subtotal:           subtotal,
		TotalAfterDiscount: domorder.ComputeTotal(subtotal, 0, 0, amount),
	}, nil
}
