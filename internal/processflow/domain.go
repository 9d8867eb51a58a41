package processflow

import (
	"strings"
	"time"
)

// ============================================================================
// CUSTOMER & ENQUIRY
// ============================================================================

type Customer struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	Classification string    `json:"classification"`
	CreatedAt      time.Time `json:"created_at"`
}

type Enquiry struct {
	ID          string    `json:"id"`
	Number      string    `json:"number"`
	CustomerID  string    `json:"customer_id"`
	EnquiryDate time.Time `json:"enquiry_date"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by"`
}

// EffectiveDate is the enquiry date when set, otherwise the creation time.
func (e Enquiry) EffectiveDate() time.Time {
	if !e.EnquiryDate.IsZero() {
		return e.EnquiryDate
	}
	return e.CreatedAt
}

// ============================================================================
// QUOTATION
// ============================================================================

type QuotationStatus string

const (
	QuotationStatusDraft              QuotationStatus = "Draft"
	QuotationStatusUnderReview        QuotationStatus = "Under Review"
	QuotationStatusApproved           QuotationStatus = "Approved"
	QuotationStatusSent               QuotationStatus = "Sent"
	QuotationStatusAccepted           QuotationStatus = "Accepted"
	QuotationStatusRejected           QuotationStatus = "Rejected"
	QuotationStatusRejectedByCustomer QuotationStatus = "Rejected by Customer"
	QuotationStatusExpired            QuotationStatus = "Expired"
)

// AllQuotationStatuses lists the closed set of quotation statuses.
func AllQuotationStatuses() []QuotationStatus {
	return []QuotationStatus{
		QuotationStatusDraft,
		QuotationStatusUnderReview,
		QuotationStatusApproved,
		QuotationStatusSent,
		QuotationStatusAccepted,
		QuotationStatusRejected,
		QuotationStatusRejectedByCustomer,
		QuotationStatusExpired,
	}
}

// ParseQuotationStatus accepts both the display form ("Under Review") and
// the database form ("UNDER_REVIEW"). Unknown values are returned verbatim
// with ok=false.
func ParseQuotationStatus(raw string) (QuotationStatus, bool) {
	normalized := normalizeStatus(raw)
	for _, status := range AllQuotationStatuses() {
		if normalizeStatus(string(status)) == normalized {
			return status, true
		}
	}
	return QuotationStatus(strings.TrimSpace(raw)), false
}

func normalizeStatus(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// IsDecision reports whether the status records a final outcome of the
// quotation (accepted or one of the terminal statuses).
func (s QuotationStatus) IsDecision() bool {
	return s == QuotationStatusAccepted || s.IsTerminal()
}

// IsTerminal reports whether the status halts progression until the
// quotation is manually revised.
func (s QuotationStatus) IsTerminal() bool {
	switch s {
	case QuotationStatusRejected, QuotationStatusRejectedByCustomer, QuotationStatusExpired:
		return true
	}
	return false
}

type Quotation struct {
	ID            string          `json:"id"`
	Number        string          `json:"number"`
	CustomerID    string          `json:"customer_id"`
	Customer      *Customer       `json:"customer,omitempty"`
	CustomerName  string          `json:"customer_name,omitempty"`
	EnquiryID     string          `json:"enquiry_id,omitempty"`
	Status        QuotationStatus `json:"status"`
	QuotationDate time.Time       `json:"quotation_date"`
	ValidUntil    time.Time       `json:"valid_until"`
	SentAt        time.Time       `json:"sent_at"`
	DecidedAt     time.Time       `json:"decided_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CreatedBy     string          `json:"created_by"`
	Currency      string          `json:"currency"`
	TotalAmount   float64         `json:"total_amount"`
}

// EffectiveDate is the quotation date when set, otherwise the creation time.
func (q Quotation) EffectiveDate() time.Time {
	if !q.QuotationDate.IsZero() {
		return q.QuotationDate
	}
	return q.CreatedAt
}

// OwnerID returns the embedded customer's id, falling back to CustomerID.
func (q Quotation) OwnerID() string {
	if q.Customer != nil && q.Customer.ID != "" {
		return q.Customer.ID
	}
	return q.CustomerID
}

// DisplayCustomer returns the best available customer label.
func (q Quotation) DisplayCustomer() string {
	if q.Customer != nil && q.Customer.Name != "" {
		return q.Customer.Name
	}
	if q.CustomerName != "" {
		return q.CustomerName
	}
	return q.CustomerID
}

// ============================================================================
// SALES ORDER
// ============================================================================

type SalesOrderStatus string

const (
	SalesOrderStatusDraft      SalesOrderStatus = "Draft"
	SalesOrderStatusConfirmed  SalesOrderStatus = "Confirmed"
	SalesOrderStatusProcessing SalesOrderStatus = "Processing"
	SalesOrderStatusCompleted  SalesOrderStatus = "Completed"
	SalesOrderStatusCancelled  SalesOrderStatus = "Cancelled"
)

// ParseSalesOrderStatus normalizes database and display forms.
func ParseSalesOrderStatus(raw string) SalesOrderStatus {
	normalized := normalizeStatus(raw)
	for _, status := range []SalesOrderStatus{
		SalesOrderStatusDraft,
		SalesOrderStatusConfirmed,
		SalesOrderStatusProcessing,
		SalesOrderStatusCompleted,
		SalesOrderStatusCancelled,
	} {
		if normalizeStatus(string(status)) == normalized {
			return status
		}
	}
	return SalesOrderStatus(strings.TrimSpace(raw))
}

type SalesOrder struct {
	ID              string           `json:"id"`
	Number          string           `json:"number"`
	CustomerID      string           `json:"customer_id"`
	CustomerName    string           `json:"customer_name,omitempty"`
	QuotationID     string           `json:"quotation_id,omitempty"`
	QuotationNumber string           `json:"quotation_number,omitempty"`
	Status          SalesOrderStatus `json:"status"`
	OrderDate       time.Time        `json:"order_date"`
	CreatedAt       time.Time        `json:"created_at"`
	CreatedBy       string           `json:"created_by"`
	Currency        string           `json:"currency"`
	TotalAmount     float64          `json:"total_amount"`
}

// References reports whether the order was raised from the quotation.
func (o SalesOrder) References(q *Quotation) bool {
	if q == nil {
		return false
	}
	if o.QuotationID != "" && o.QuotationID == q.ID {
		return true
	}
	return o.QuotationNumber != "" && o.QuotationNumber == q.Number
}

// ============================================================================
// SNAPSHOT
// ============================================================================

// Snapshot is a read-only view of the entities at a point in time. Callers
// must not mutate a snapshot once it has been handed to the engine.
type Snapshot struct {
	CompanyID   int64        `json:"company_id"`
	Version     int64        `json:"version"`
	TakenAt     time.Time    `json:"taken_at"`
	Customers   []Customer   `json:"customers"`
	Enquiries   []Enquiry    `json:"enquiries"`
	Quotations  []Quotation  `json:"quotations"`
	SalesOrders []SalesOrder `json:"sales_orders"`
}

// Query selects the deal the engine reports on. Both fields are optional
// and match either the id or the human-readable number/code.
type Query struct {
	CustomerID  string `json:"customer_id,omitempty"`
	QuotationID string `json:"quotation_id,omitempty"`
}
