package processflow

import "time"

// ============================================================================
// TEST FIXTURES
// ============================================================================

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func fixtureCustomer(id, name string) Customer {
	return Customer{
		ID:             id,
		Code:           "CUST-" + id,
		Name:           name,
		Type:           "Corporate",
		Classification: "A",
		CreatedAt:      day("2023-12-01"),
	}
}

func fixtureEnquiry(id, customerID string, date time.Time) Enquiry {
	return Enquiry{
		ID:          id,
		Number:      "ENQ-" + id,
		CustomerID:  customerID,
		EnquiryDate: date,
		CreatedAt:   date,
		CreatedBy:   "sales.rep",
	}
}

func fixtureQuotation(id, customerID string, status QuotationStatus, date time.Time) Quotation {
	return Quotation{
		ID:            id,
		Number:        "QUO-" + id,
		CustomerID:    customerID,
		CustomerName:  "Acme Ltd",
		Status:        status,
		QuotationDate: date,
		CreatedAt:     date,
		UpdatedAt:     date,
		CreatedBy:     "sales.rep",
		Currency:      "KES",
		TotalAmount:   12500,
	}
}

func fixtureOrder(id, quotationID string, status SalesOrderStatus, created time.Time) SalesOrder {
	return SalesOrder{
		ID:           id,
		Number:       "SO-" + id,
		CustomerID:   "c1",
		CustomerName: "Acme Ltd",
		QuotationID:  quotationID,
		Status:       status,
		OrderDate:    created,
		CreatedAt:    created,
		CreatedBy:    "ops.lead",
		Currency:     "KES",
		TotalAmount:  12500,
	}
}

// newDealSnapshot builds a snapshot with one customer, one enquiry and one
// quotation in the given status.
func newDealSnapshot(status QuotationStatus) *Snapshot {
	q := fixtureQuotation("q1", "c1", status, day("2024-01-05"))
	q.EnquiryID = "e1"
	return &Snapshot{
		Customers:  []Customer{fixtureCustomer("c1", "Acme Ltd")},
		Enquiries:  []Enquiry{fixtureEnquiry("e1", "c1", day("2024-01-01"))},
		Quotations: []Quotation{q},
	}
}
