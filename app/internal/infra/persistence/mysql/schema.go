package mysql

import (
	"context"
	"database/sql"
)

// Tables checkout reads or writes. cart_items and products are owned by the
// storefront; they are created here only when missing so a fresh database works.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
        id             BIGINT AUTO_INCREMENT PRIMARY KEY,
        name           VARCHAR(255)   NOT NULL,
        price          DECIMAL(15, 2) NOT NULL,
        original_price DECIMAL(15, 2) NULL,
        stock          BIGINT         NOT NULL DEFAULT 0,
        is_active      TINYINT(1)     NOT NULL DEFAULT 1
    )`,
	`CREATE TABLE IF NOT EXISTS cart_items (
        id         BIGINT AUTO_INCREMENT PRIMARY KEY,
        session_id VARCHAR(64) NOT NULL,
        product_id BIGINT      NOT NULL,
        quantity   BIGINT      NOT NULL,
        UNIQUE KEY uq_cart_session_product (session_id, product_id)
    )`,
	`CREATE TABLE IF NOT EXISTS coupons (
        code                VARCHAR(64)    PRIMARY KEY,
        discount_type       VARCHAR(16)    NOT NULL,
        discount_value      DECIMAL(15, 2) NOT NULL,
        min_order_amount    DECIMAL(15, 2) NULL,
        max_discount_amount DECIMAL(15, 2) NULL,
        usage_limit         BIGINT         NULL,
        usage_count         BIGINT         NOT NULL DEFAULT 0,
        start_date          DATETIME       NULL,
        end_date            DATETIME       NULL,
        is_active           TINYINT(1)     NOT NULL DEFAULT 1
    )`,
	`CREATE TABLE IF NOT EXISTS orders (
        id                BIGINT AUTO_INCREMENT PRIMARY KEY,
        order_number      VARCHAR(32)    NOT NULL UNIQUE,
        session_id        VARCHAR(64)    NOT NULL,
        user_id           VARCHAR(64)    NULL,
        status            VARCHAR(16)    NOT NULL,
        payment_method    VARCHAR(32)    NOT NULL,
        billing_address   JSON           NOT NULL,
        shipping_address  JSON           NOT NULL,
        ship_to_different TINYINT(1)     NOT NULL DEFAULT 0,
        subtotal          DECIMAL(15, 2) NOT NULL,
        shipping_fee      DECIMAL(15, 2) NOT NULL,
        tax_amount        DECIMAL(15, 2) NOT NULL,
        discount_amount   DECIMAL(15, 2) NOT NULL,
        total_amount      DECIMAL(15, 2) NOT NULL,
        coupon_code       VARCHAR(64)    NULL,
        idempotency_key   VARCHAR(64)    NULL UNIQUE,
        created_at        DATETIME(6)    NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS order_items (
        id           BIGINT AUTO_INCREMENT PRIMARY KEY,
        order_id     BIGINT         NOT NULL,
        product_id   BIGINT         NOT NULL,
        product_name VARCHAR(255)   NOT NULL,
        unit_price   DECIMAL(15, 2) NOT NULL,
        quantity     BIGINT         NOT NULL,
        KEY idx_order_items_order (order_id)
    )`,
}

func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
