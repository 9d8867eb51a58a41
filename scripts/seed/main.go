package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/salesflow/internal/app"
	"github.com/odyssey-erp/salesflow/internal/platform/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         BIGSERIAL PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	full_name  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS customers (
	id             BIGSERIAL PRIMARY KEY,
	company_id     BIGINT NOT NULL,
	code           TEXT NOT NULL,
	name           TEXT NOT NULL,
	customer_type  TEXT,
	classification TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (company_id, code)
);

CREATE TABLE IF NOT EXISTS enquiries (
	id           BIGSERIAL PRIMARY KEY,
	company_id   BIGINT NOT NULL,
	doc_number   TEXT NOT NULL UNIQUE,
	customer_id  BIGINT NOT NULL REFERENCES customers (id),
	enquiry_date DATE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_by   BIGINT REFERENCES users (id)
);

CREATE TABLE IF NOT EXISTS quotations (
	id           BIGSERIAL PRIMARY KEY,
	company_id   BIGINT NOT NULL,
	doc_number   TEXT NOT NULL UNIQUE,
	customer_id  BIGINT NOT NULL REFERENCES customers (id),
	enquiry_id   BIGINT REFERENCES enquiries (id),
	status       TEXT NOT NULL,
	quote_date   DATE,
	valid_until  DATE,
	sent_at      TIMESTAMPTZ,
	decided_at   TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_by   BIGINT REFERENCES users (id),
	currency     TEXT NOT NULL DEFAULT 'KES',
	total_amount NUMERIC(18, 2) NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sales_orders (
	id           BIGSERIAL PRIMARY KEY,
	company_id   BIGINT NOT NULL,
	doc_number   TEXT NOT NULL UNIQUE,
	customer_id  BIGINT NOT NULL REFERENCES customers (id),
	quotation_id BIGINT REFERENCES quotations (id),
	status       TEXT NOT NULL,
	order_date   DATE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_by   BIGINT REFERENCES users (id),
	currency     TEXT NOT NULL DEFAULT 'KES',
	total_amount NUMERIC(18, 2) NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS quotations_company_idx ON quotations (company_id);
CREATE INDEX IF NOT EXISTS sales_orders_company_idx ON sales_orders (company_id);
`

const demoCompany int64 = 1

type demoDeal struct {
	customerCode string
	customerName string
	enquiry      string
	quotation    string
	status       string
	sent         bool
	decided      bool
	order        string
	orderStatus  string
	amount       float64
}

var demoDeals = []demoDeal{
	{customerCode: "CUST-000001", customerName: "Savannah Foods Ltd"},
	{customerCode: "CUST-000002", customerName: "Rift Valley Traders", enquiry: "ENQ-202410-0001"},
	{customerCode: "CUST-000003", customerName: "Lakeside Hardware", enquiry: "ENQ-202410-0002", quotation: "QUO-202410-0001", status: "DRAFT", amount: 48500},
	{customerCode: "CUST-000004", customerName: "Coastline Logistics", enquiry: "ENQ-202410-0003", quotation: "QUO-202410-0002", status: "UNDER_REVIEW", amount: 125000},
	{customerCode: "CUST-000005", customerName: "Highland Dairies", enquiry: "ENQ-202410-0004", quotation: "QUO-202410-0003", status: "SENT", sent: true, amount: 76250},
	{customerCode: "CUST-000006", customerName: "Mombasa Marine", enquiry: "ENQ-202410-0005", quotation: "QUO-202410-0004", status: "ACCEPTED", sent: true, decided: true, amount: 310000},
	{customerCode: "CUST-000007", customerName: "Nairobi Office Supplies", enquiry: "ENQ-202410-0006", quotation: "QUO-202410-0005", status: "ACCEPTED", sent: true, decided: true, order: "SO-202410-0001", orderStatus: "DRAFT", amount: 18900},
	{customerCode: "CUST-000008", customerName: "Kisumu Agro", enquiry: "ENQ-202410-0007", quotation: "QUO-202410-0006", status: "REJECTED_BY_CUSTOMER", sent: true, decided: true, amount: 54000},
	{customerCode: "CUST-000009", customerName: "Eldoret Mills", quotation: "QUO-202410-0007", status: "EXPIRED", sent: true, decided: true, amount: 22000},
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg, "salesflow-seed")

	pool, err := db.New(ctx, cfg.PGDSN, db.WithApplicationName("salesflow-seed"), db.WithMaxConns(cfg.PGMaxConns))
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		logger.Error("apply schema", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("schema ready")

	if err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error { return seedDeals(ctx, tx) }); err != nil {
		logger.Error("seed deals", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seed complete", slog.Int("deals", len(demoDeals)), slog.Int64("company_id", demoCompany))
}

func seedDeals(ctx context.Context, tx pgx.Tx) error {
	var userID int64
	err := tx.QueryRow(ctx, `
		INSERT INTO users (email, full_name) VALUES ('sales@salesflow.local', 'Demo Sales Rep')
		ON CONFLICT (email) DO UPDATE SET full_name = EXCLUDED.full_name
		RETURNING id`).Scan(&userID)
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	base := time.Now().UTC().AddDate(0, 0, -30).Truncate(24 * time.Hour)
	for i, deal := range demoDeals {
		day := base.AddDate(0, 0, i)
		var customerID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO customers (company_id, code, name, customer_type, classification, created_at)
			VALUES ($1, $2, $3, 'Corporate', 'B', $4)
			ON CONFLICT (company_id, code) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, demoCompany, deal.customerCode, deal.customerName, day).Scan(&customerID)
		if err != nil {
			return fmt.Errorf("seed customer %s: %w", deal.customerCode, err)
		}

		var enquiryID *int64
		if deal.enquiry != "" {
			var id int64
			err := tx.QueryRow(ctx, `
				INSERT INTO enquiries (company_id, doc_number, customer_id, enquiry_date, created_at, created_by)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (doc_number) DO UPDATE SET doc_number = EXCLUDED.doc_number
				RETURNING id`, demoCompany, deal.enquiry, customerID, day.AddDate(0, 0, 1), day.AddDate(0, 0, 1), userID).Scan(&id)
			if err != nil {
				return fmt.Errorf("seed enquiry %s: %w", deal.enquiry, err)
			}
			enquiryID = &id
		}
		if deal.quotation == "" {
			continue
		}

		quoteDate := day.AddDate(0, 0, 2)
		var sentAt, decidedAt *time.Time
		if deal.sent {
			t := quoteDate.Add(26 * time.Hour)
			sentAt = &t
		}
		if deal.decided {
			t := quoteDate.Add(74 * time.Hour)
			decidedAt = &t
		}
		var quotationID int64
		err = tx.QueryRow(ctx, `
			INSERT INTO quotations (company_id, doc_number, customer_id, enquiry_id, status, quote_date, valid_until,
			                        sent_at, decided_at, created_at, updated_at, created_by, currency, total_amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10, $11, 'KES', $12)
			ON CONFLICT (doc_number) DO UPDATE SET status = EXCLUDED.status
			RETURNING id`,
			demoCompany, deal.quotation, customerID, enquiryID, deal.status, quoteDate, quoteDate.AddDate(0, 0, 30),
			sentAt, decidedAt, quoteDate, userID, deal.amount,
		).Scan(&quotationID)
		if err != nil {
			return fmt.Errorf("seed quotation %s: %w", deal.quotation, err)
		}

		if deal.order == "" {
			continue
		}
		orderDate := quoteDate.AddDate(0, 0, 4)
		_, err = tx.Exec(ctx, `
			INSERT INTO sales_orders (company_id, doc_number, customer_id, quotation_id, status, order_date,
			                          created_at, created_by, currency, total_amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'KES', $9)
			ON CONFLICT (doc_number) DO NOTHING`,
			demoCompany, deal.order, customerID, quotationID, deal.orderStatus, orderDate, orderDate, userID, deal.amount)
		if err != nil {
			return fmt.Errorf("seed sales order %s: %w", deal.order, err)
		}
	}
	return nil
}
