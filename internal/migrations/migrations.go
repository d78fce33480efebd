package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"medstore/m/internal/database"
)

// Run creates the database schema for the POS backend.
func Run(db *sqlx.DB) error {
	schema := sqliteSchema
	if database.IsPostgres(db) {
		schema = postgresSchema
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Dates (expiry, birth, prescription) are stored as YYYY-MM-DD text in both
// dialects so they compare and scan identically.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            phone TEXT NOT NULL UNIQUE,
            email TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT '',
            date_of_birth TEXT NOT NULL DEFAULT '',
            gender TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS medicines (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            brand TEXT NOT NULL,
            category TEXT NOT NULL,
            stock BIGINT NOT NULL DEFAULT 0 CHECK (stock >= 0),
            min_stock BIGINT NOT NULL DEFAULT 0,
            price NUMERIC(12,2) NOT NULL,
            cost_price NUMERIC(12,2) NOT NULL,
            gst_percentage NUMERIC(5,2) NOT NULL DEFAULT 12,
            batch_number TEXT NOT NULL,
            expiry_date TEXT NOT NULL,
            manufacturer TEXT NOT NULL DEFAULT '',
            composition TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS sales (
            id BIGSERIAL PRIMARY KEY,
            customer_id BIGINT REFERENCES customers(id),
            bill_number TEXT NOT NULL UNIQUE,
            total_amount NUMERIC(12,2) NOT NULL,
            discount_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
            gst_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
            final_amount NUMERIC(12,2) NOT NULL,
            payment_method TEXT NOT NULL,
            payment_status TEXT NOT NULL DEFAULT 'paid',
            notes TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS sale_items (
            id BIGSERIAL PRIMARY KEY,
            sale_id BIGINT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
            medicine_id BIGINT NOT NULL REFERENCES medicines(id),
            quantity BIGINT NOT NULL CHECK (quantity > 0),
            unit_price NUMERIC(12,2) NOT NULL,
            total_price NUMERIC(12,2) NOT NULL,
            gst_amount NUMERIC(12,2) NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS stock_movements (
            id BIGSERIAL PRIMARY KEY,
            medicine_id BIGINT NOT NULL,
            movement_type TEXT NOT NULL CHECK (movement_type IN ('in', 'out', 'adjustment')),
            quantity BIGINT NOT NULL,
            reason TEXT NOT NULL DEFAULT '',
            reference_type TEXT NOT NULL,
            reference_id BIGINT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS prescriptions (
            id BIGSERIAL PRIMARY KEY,
            customer_id BIGINT NOT NULL REFERENCES customers(id),
            prescription_number TEXT NOT NULL UNIQUE,
            doctor_name TEXT NOT NULL DEFAULT '',
            prescription_date TEXT NOT NULL DEFAULT '',
            file_url TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending',
            notes TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS prescription_items (
            id BIGSERIAL PRIMARY KEY,
            prescription_id BIGINT NOT NULL REFERENCES prescriptions(id) ON DELETE CASCADE,
            medicine_id BIGINT NOT NULL REFERENCES medicines(id),
            quantity BIGINT NOT NULL DEFAULT 0,
            dosage TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending'
        );`,
	`CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales(created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_sale_items_medicine ON sale_items(medicine_id);`,
	`CREATE INDEX IF NOT EXISTS idx_stock_movements_medicine ON stock_movements(medicine_id);`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            phone TEXT NOT NULL UNIQUE,
            email TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT '',
            date_of_birth TEXT NOT NULL DEFAULT '',
            gender TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS medicines (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            brand TEXT NOT NULL,
            category TEXT NOT NULL,
            stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
            min_stock INTEGER NOT NULL DEFAULT 0,
            price NUMERIC NOT NULL,
            cost_price NUMERIC NOT NULL,
            gst_percentage NUMERIC NOT NULL DEFAULT 12,
            batch_number TEXT NOT NULL,
            expiry_date TEXT NOT NULL,
            manufacturer TEXT NOT NULL DEFAULT '',
            composition TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS sales (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            customer_id INTEGER,
            bill_number TEXT NOT NULL UNIQUE,
            total_amount NUMERIC NOT NULL,
            discount_amount NUMERIC NOT NULL DEFAULT 0,
            gst_amount NUMERIC NOT NULL DEFAULT 0,
            final_amount NUMERIC NOT NULL,
            payment_method TEXT NOT NULL,
            payment_status TEXT NOT NULL DEFAULT 'paid',
            notes TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(customer_id) REFERENCES customers(id)
        );`,
	`CREATE TABLE IF NOT EXISTS sale_items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            sale_id INTEGER NOT NULL,
            medicine_id INTEGER NOT NULL,
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            unit_price NUMERIC NOT NULL,
            total_price NUMERIC NOT NULL,
            gst_amount NUMERIC NOT NULL,
            FOREIGN KEY(sale_id) REFERENCES sales(id) ON DELETE CASCADE,
            FOREIGN KEY(medicine_id) REFERENCES medicines(id)
        );`,
	`CREATE TABLE IF NOT EXISTS stock_movements (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            medicine_id INTEGER NOT NULL,
            movement_type TEXT NOT NULL CHECK (movement_type IN ('in', 'out', 'adjustment')),
            quantity INTEGER NOT NULL,
            reason TEXT NOT NULL DEFAULT '',
            reference_type TEXT NOT NULL,
            reference_id INTEGER,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS prescriptions (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            customer_id INTEGER NOT NULL,
            prescription_number TEXT NOT NULL UNIQUE,
            doctor_name TEXT NOT NULL DEFAULT '',
            prescription_date TEXT NOT NULL DEFAULT '',
            file_url TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending',
            notes TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(customer_id) REFERENCES customers(id)
        );`,
	`CREATE TABLE IF NOT EXISTS prescription_items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            prescription_id INTEGER NOT NULL,
            medicine_id INTEGER NOT NULL,
            quantity INTEGER NOT NULL DEFAULT 0,
            dosage TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending',
            FOREIGN KEY(prescription_id) REFERENCES prescriptions(id) ON DELETE CASCADE,
            FOREIGN KEY(medicine_id) REFERENCES medicines(id)
        );`,
	`CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales(created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_sale_items_medicine ON sale_items(medicine_id);`,
	`CREATE INDEX IF NOT EXISTS idx_stock_movements_medicine ON stock_movements(medicine_id);`,
}
