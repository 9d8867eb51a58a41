package processflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/salesflow/internal/platform/db"
)

// ErrSnapshotUnavailable indicates the entity tables cannot be read.
var ErrSnapshotUnavailable = errors.New("processflow: snapshot source unavailable")

// Repository provides read access to the entities the engine consumes.
type Repository interface {
	LoadSnapshot(ctx context.Context, companyID int64) (*Snapshot, error)
	ListCompanyIDs(ctx context.Context) ([]int64, error)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGRepository reads snapshots from the sales tables in Postgres.
type PGRepository struct {
	pool  *pgxpool.Pool
	clock func() time.Time
}

// NewRepository constructs a Postgres backed repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool, clock: time.Now}
}

// LoadSnapshot reads the four collections of a company inside a single
// read-only transaction.
func (r *PGRepository) LoadSnapshot(ctx context.Context, companyID int64) (*Snapshot, error) {
	snap := &Snapshot{CompanyID: companyID}
	err := db.WithReadTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if snap.Customers, err = loadCustomers(ctx, tx, companyID); err != nil {
			return fmt.Errorf("load customers: %w", err)
		}
		if snap.Enquiries, err = loadEnquiries(ctx, tx, companyID); err != nil {
			return fmt.Errorf("load enquiries: %w", err)
		}
		if snap.Quotations, err = loadQuotations(ctx, tx, companyID); err != nil {
			return fmt.Errorf("load quotations: %w", err)
		}
		if snap.SalesOrders, err = loadSalesOrders(ctx, tx, companyID); err != nil {
			return fmt.Errorf("load sales orders: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, classifyPGError(err)
	}
	snap.TakenAt = r.clock().UTC()
	return snap, nil
}

// ListCompanyIDs returns the companies that have quotations on record.
func (r *PGRepository) ListCompanyIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT company_id FROM quotations WHERE company_id > 0 ORDER BY company_id`)
	if err != nil {
		return nil, classifyPGError(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, classifyPGError(err)
	}
	return ids, nil
}

func loadCustomers(ctx context.Context, q querier, companyID int64) ([]Customer, error) {
	rows, err := q.Query(ctx, `
		SELECT c.id::text, c.code, c.name,
		       COALESCE(c.customer_type, ''), COALESCE(c.classification, ''),
		       c.created_at
		FROM customers c
		WHERE c.company_id = $1
		ORDER BY c.id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]Customer, 0)
	for rows.Next() {
		var c Customer
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Type, &c.Classification, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = timestamp(createdAt)
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func loadEnquiries(ctx context.Context, q querier, companyID int64) ([]Enquiry, error) {
	rows, err := q.Query(ctx, `
		SELECT e.id::text, e.doc_number, e.customer_id::text,
		       e.enquiry_date, e.created_at,
		       COALESCE(u.full_name, '')
		FROM enquiries e
		LEFT JOIN users u ON e.created_by = u.id
		WHERE e.company_id = $1
		ORDER BY e.id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	enquiries := make([]Enquiry, 0)
	for rows.Next() {
		var e Enquiry
		var enquiryDate pgtype.Date
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(&e.ID, &e.Number, &e.CustomerID, &enquiryDate, &createdAt, &e.CreatedBy); err != nil {
			return nil, err
		}
		e.EnquiryDate = date(enquiryDate)
		e.CreatedAt = timestamp(createdAt)
		enquiries = append(enquiries, e)
	}
	return enquiries, rows.Err()
}

func loadQuotations(ctx context.Context, q querier, companyID int64) ([]Quotation, error) {
	rows, err := q.Query(ctx, `
		SELECT q.id::text, q.doc_number, q.customer_id::text, COALESCE(c.name, ''),
		       COALESCE(q.enquiry_id::text, ''), q.status::text,
		       q.quote_date, q.valid_until, q.sent_at, q.decided_at,
		       q.created_at, q.updated_at, COALESCE(u.full_name, ''),
		       q.currency, q.total_amount
		FROM quotations q
		LEFT JOIN customers c ON q.customer_id = c.id
		LEFT JOIN users u ON q.created_by = u.id
		WHERE q.company_id = $1
		ORDER BY q.id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotations := make([]Quotation, 0)
	for rows.Next() {
		var qt Quotation
		var status string
		var quoteDate, validUntil pgtype.Date
		var sentAt, decidedAt, createdAt, updatedAt pgtype.Timestamptz
		var total pgtype.Numeric
		if err := rows.Scan(
			&qt.ID, &qt.Number, &qt.CustomerID, &qt.CustomerName,
			&qt.EnquiryID, &status,
			&quoteDate, &validUntil, &sentAt, &decidedAt,
			&createdAt, &updatedAt, &qt.CreatedBy,
			&qt.Currency, &total,
		); err != nil {
			return nil, err
		}
		qt.Status, _ = ParseQuotationStatus(status)
		qt.QuotationDate = date(quoteDate)
		qt.ValidUntil = date(validUntil)
		qt.SentAt = timestamp(sentAt)
		qt.DecidedAt = timestamp(decidedAt)
		qt.CreatedAt = timestamp(createdAt)
		qt.UpdatedAt = timestamp(updatedAt)
		qt.TotalAmount = numeric(total)
		quotations = append(quotations, qt)
	}
	return quotations, rows.Err()
}

func loadSalesOrders(ctx context.Context, q querier, companyID int64) ([]SalesOrder, error) {
	rows, err := q.Query(ctx, `
		SELECT so.id::text, so.doc_number, so.customer_id::text, COALESCE(c.name, ''),
		       COALESCE(so.quotation_id::text, ''), COALESCE(qt.doc_number, ''),
		       so.status::text, so.order_date, so.created_at, COALESCE(u.full_name, ''),
		       so.currency, so.total_amount
		FROM sales_orders so
		LEFT JOIN customers c ON so.customer_id = c.id
		LEFT JOIN quotations qt ON so.quotation_id = qt.id
		LEFT JOIN users u ON so.created_by = u.id
		WHERE so.company_id = $1
		ORDER BY so.id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]SalesOrder, 0)
	for rows.Next() {
		var o SalesOrder
		var status string
		var orderDate pgtype.Date
		var createdAt pgtype.Timestamptz
		var total pgtype.Numeric
		if err := rows.Scan(
			&o.ID, &o.Number, &o.CustomerID, &o.CustomerName,
			&o.QuotationID, &o.QuotationNumber,
			&status, &orderDate, &createdAt, &o.CreatedBy,
			&o.Currency, &total,
		); err != nil {
			return nil, err
		}
		o.Status = ParseSalesOrderStatus(status)
		o.OrderDate = date(orderDate)
		o.CreatedAt = timestamp(createdAt)
		o.TotalAmount = numeric(total)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// classifyPGError marks missing relations and connection failures as
// ErrSnapshotUnavailable.
func classifyPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01", "42703", "57P01", "57P03":
			return fmt.Errorf("%w: %s", ErrSnapshotUnavailable, err.Error())
		}
		return err
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %s", ErrSnapshotUnavailable, err.Error())
	}
	return err
}

func timestamp(v pgtype.Timestamptz) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return v.Time
}

func date(v pgtype.Date) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return v.Time
}

func numeric(v pgtype.Numeric) float64 {
	if !v.Valid {
		return 0
	}
	f, err := v.Float64Value()
	if err != nil || !f.Valid {
		return 0
	}
	return f.Float64
}
