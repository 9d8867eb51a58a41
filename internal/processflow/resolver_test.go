package processflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveByQuotationIgnoresCustomerFilter(t *testing.T) {
	snap := &Snapshot{
		Customers: []Customer{fixtureCustomer("c1", "Acme Ltd"), fixtureCustomer("c2", "Beta")},
		Quotations: []Quotation{
			fixtureQuotation("q1", "c1", QuotationStatusSent, day("2024-01-05")),
			fixtureQuotation("q2", "c2", QuotationStatusDraft, day("2024-02-01")),
		},
	}

	res := Resolve(snap, Query{CustomerID: "c2", QuotationID: "q1"})

	require.NotNil(t, res.Quotation)
	assert.Equal(t, "q1", res.Quotation.ID)
	require.NotNil(t, res.Customer)
	assert.Equal(t, "c2", res.Customer.ID, "explicit customer argument wins")
}

func TestResolveByQuotationNumber(t *testing.T) {
	snap := newDealSnapshot(QuotationStatusDraft)

	res := Resolve(snap, Query{QuotationID: "QUO-q1"})

	require.NotNil(t, res.Quotation)
	assert.Equal(t, "q1", res.Quotation.ID)
	require.NotNil(t, res.Customer)
	assert.Equal(t, "c1", res.Customer.ID)
	require.NotNil(t, res.Enquiry)
	assert.Equal(t, "e1", res.Enquiry.ID)
}

func TestResolveLatestQuotationForCustomer(t *testing.T) {
	withoutDate := fixtureQuotation("q3", "c1", QuotationStatusDraft, day("2024-03-01"))
	withoutDate.QuotationDate = time.Time{}

	snap := &Snapshot{
		Customers: []Customer{fixtureCustomer("c1", "Acme Ltd")},
		Quotations: []Quotation{
			fixtureQuotation("q1", "c1", QuotationStatusSent, day("2024-01-05")),
			fixtureQuotation("q2", "c2", QuotationStatusDraft, day("2024-06-01")),
			withoutDate,
		},
	}

	res := Resolve(snap, Query{CustomerID: "c1"})

	require.NotNil(t, res.Quotation)
	assert.Equal(t, "q3", res.Quotation.ID, "creation date is used when the quotation date is absent")
}

func TestResolveTiesKeepFirstEncountered(t *testing.T) {
	snap := &Snapshot{
		Quotations: []Quotation{
			fixtureQuotation("qa", "c1", QuotationStatusSent, day("2024-01-05")),
			fixtureQuotation("qb", "c1", QuotationStatusDraft, day("2024-01-05")),
		},
	}

	res := Resolve(snap, Query{CustomerID: "c1"})

	require.NotNil(t, res.Quotation)
	assert.Equal(t, "qa", res.Quotation.ID)
}

func TestResolveWithoutArgumentsUsesWholeSet(t *testing.T) {
	snap := &Snapshot{
		Customers: []Customer{fixtureCustomer("c1", "Acme Ltd"), fixtureCustomer("c2", "Beta")},
		Quotations: []Quotation{
			fixtureQuotation("q1", "c1", QuotationStatusSent, day("2024-01-05")),
			fixtureQuotation("q2", "c2", QuotationStatusDraft, day("2024-02-01")),
		},
	}

	res := Resolve(snap, Query{})

	require.NotNil(t, res.Quotation)
	assert.Equal(t, "q2", res.Quotation.ID)
	require.NotNil(t, res.Customer)
	assert.Equal(t, "c2", res.Customer.ID)
}

func TestResolveCustomerByCode(t *testing.T) {
	snap := newDealSnapshot(QuotationStatusSent)

	res := Resolve(snap, Query{CustomerID: "CUST-c1"})

	require.NotNil(t, res.Customer)
	assert.Equal(t, "c1", res.Customer.ID)
	require.NotNil(t, res.Quotation)
	assert.Equal(t, "q1", res.Quotation.ID)
}

func TestResolveEmbeddedCustomer(t *testing.T) {
	q := fixtureQuotation("q1", "", QuotationStatusDraft, day("2024-01-05"))
	embedded := fixtureCustomer("c9", "Embedded Co")
	q.Customer = &embedded

	snap := &Snapshot{Quotations: []Quotation{q}}

	res := Resolve(snap, Query{CustomerID: "c9"})
	require.NotNil(t, res.Quotation, "embedded customer id is used for filtering")
	require.NotNil(t, res.Customer, "customer comes from the quotation when the list has no match")
	assert.Equal(t, "c9", res.Customer.ID)

	res = Resolve(snap, Query{QuotationID: "q1"})
	require.NotNil(t, res.Customer)
	assert.Equal(t, "Embedded Co", res.Customer.Name)
}

func TestComputeEmbeddedCustomerCompletesCustomerStep(t *testing.T) {
	q := fixtureQuotation("q1", "", QuotationStatusSent, day("2024-01-05"))
	embedded := fixtureCustomer("c9", "Embedded Co")
	q.Customer = &embedded

	state := Compute(&Snapshot{Quotations: []Quotation{q}}, Query{CustomerID: "c9"})

	require.NotNil(t, state.Customer)
	assert.Contains(t, state.CompletedSteps, StepCustomer)
	assert.Contains(t, state.CompletedSteps, StepQuotation)
	assert.Equal(t, StepCustomerAcceptance, state.CurrentStep)
}

func TestResolveUnknownCustomerStaysEmpty(t *testing.T) {
	snap := newDealSnapshot(QuotationStatusDraft)

	res := Resolve(snap, Query{CustomerID: "nobody"})

	assert.Nil(t, res.Customer)
	assert.Nil(t, res.Quotation)
}

func TestResolveEnquiryPreference(t *testing.T) {
	snap := newDealSnapshot(QuotationStatusSent)
	snap.Enquiries = append(snap.Enquiries, fixtureEnquiry("e2", "c1", day("2024-03-01")))

	res := Resolve(snap, Query{CustomerID: "c1"})
	require.NotNil(t, res.Enquiry)
	assert.Equal(t, "e1", res.Enquiry.ID, "linked enquiry beats the latest one")

	snap.Quotations[0].EnquiryID = ""
	res = Resolve(snap, Query{CustomerID: "c1"})
	require.NotNil(t, res.Enquiry)
	assert.Equal(t, "e2", res.Enquiry.ID)

	snap.Quotations[0].EnquiryID = "missing"
	res = Resolve(snap, Query{CustomerID: "c1"})
	require.NotNil(t, res.Enquiry)
	assert.Equal(t, "e2", res.Enquiry.ID, "dangling link falls back to the latest enquiry")
}

func TestResolveSalesOrderByIDOrNumber(t *testing.T) {
	snap := newDealSnapshot(QuotationStatusAccepted)
	byNumber := fixtureOrder("so1", "", SalesOrderStatusConfirmed, day("2024-01-10"))
	byNumber.QuotationNumber = "QUO-q1"
	snap.SalesOrders = []SalesOrder{
		fixtureOrder("so0", "other", SalesOrderStatusConfirmed, day("2024-01-08")),
		byNumber,
	}

	res := Resolve(snap, Query{CustomerID: "c1"})

	require.NotNil(t, res.SalesOrder)
	assert.Equal(t, "so1", res.SalesOrder.ID)
}

func TestResolveNilAndEmpty(t *testing.T) {
	assert.Equal(t, Resolution{}, Resolve(nil, Query{CustomerID: "c1"}))
	assert.Equal(t, Resolution{}, Resolve(&Snapshot{}, Query{}))
}

func TestParseQuotationStatus(t *testing.T) {
	cases := map[string]QuotationStatus{
		"Draft":                QuotationStatusDraft,
		"UNDER_REVIEW":         QuotationStatusUnderReview,
		"under review":         QuotationStatusUnderReview,
		"REJECTED_BY_CUSTOMER": QuotationStatusRejectedByCustomer,
		" Expired ":            QuotationStatusExpired,
	}
	for raw, want := range cases {
		got, ok := ParseQuotationStatus(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	got, ok := ParseQuotationStatus("CONVERTED")
	assert.False(t, ok)
	assert.Equal(t, QuotationStatus("CONVERTED"), got)
}
