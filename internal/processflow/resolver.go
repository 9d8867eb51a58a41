package processflow

import "strings"

// Resolution holds the entities the engine reports on. Any field may be nil.
type Resolution struct {
	Quotation  *Quotation  `json:"target_quotation"`
	Customer   *Customer   `json:"customer"`
	Enquiry    *Enquiry    `json:"related_enquiry"`
	SalesOrder *SalesOrder `json:"related_sales_order"`
}

// Resolve selects the target quotation for q and the customer, enquiry and
// sales order related to it. It never fails; unmatched entities stay nil.
// Returned pointers alias the snapshot's slices.
func Resolve(snap *Snapshot, q Query) Resolution {
	var res Resolution
	if snap == nil {
		return res
	}
	customerRef := strings.TrimSpace(q.CustomerID)
	quotationRef := strings.TrimSpace(q.QuotationID)

	var explicit *Customer
	if customerRef != "" {
		explicit = findCustomer(snap.Customers, customerRef)
	}

	if quotationRef != "" {
		res.Quotation = findQuotation(snap.Quotations, quotationRef)
	} else {
		ownerID := customerRef
		if explicit != nil {
			ownerID = explicit.ID
		}
		res.Quotation = latestQuotation(snap.Quotations, ownerID, customerRef != "")
	}

	switch {
	case explicit != nil:
		res.Customer = explicit
	case res.Quotation != nil:
		res.Customer = quotationCustomer(snap.Customers, res.Quotation)
	}

	res.Enquiry = relatedEnquiry(snap.Enquiries, res.Quotation, res.Customer)
	res.SalesOrder = relatedSalesOrder(snap.SalesOrders, res.Quotation)
	return res
}

func findCustomer(customers []Customer, ref string) *Customer {
	for i := range customers {
		if customers[i].ID == ref {
			return &customers[i]
		}
	}
	for i := range customers {
		if customers[i].Code != "" && customers[i].Code == ref {
			return &customers[i]
		}
	}
	return nil
}

func findQuotation(quotations []Quotation, ref string) *Quotation {
	for i := range quotations {
		if quotations[i].ID == ref {
			return &quotations[i]
		}
	}
	for i := range quotations {
		if quotations[i].Number != "" && quotations[i].Number == ref {
			return &quotations[i]
		}
	}
	return nil
}

// latestQuotation picks the quotation with the latest effective date.
// Ties keep the first one encountered.
func latestQuotation(quotations []Quotation, ownerID string, filter bool) *Quotation {
	var latest *Quotation
	for i := range quotations {
		q := &quotations[i]
		if filter && q.OwnerID() != ownerID {
			continue
		}
		if latest == nil || q.EffectiveDate().After(latest.EffectiveDate()) {
			latest = q
		}
	}
	return latest
}

func quotationCustomer(customers []Customer, q *Quotation) *Customer {
	if q.Customer != nil && q.Customer.ID != "" {
		return q.Customer
	}
	if q.CustomerID == "" {
		return nil
	}
	for i := range customers {
		if customers[i].ID == q.CustomerID {
			return &customers[i]
		}
	}
	return nil
}

func relatedEnquiry(enquiries []Enquiry, q *Quotation, c *Customer) *Enquiry {
	if q != nil && q.EnquiryID != "" {
		for i := range enquiries {
			if enquiries[i].ID == q.EnquiryID {
				return &enquiries[i]
			}
		}
	}
	if c == nil {
		return nil
	}
	var latest *Enquiry
	for i := range enquiries {
		e := &enquiries[i]
		if e.CustomerID != c.ID {
			continue
		}
		if latest == nil || e.EffectiveDate().After(latest.EffectiveDate()) {
			latest = e
		}
	}
	return latest
}

func relatedSalesOrder(orders []SalesOrder, q *Quotation) *SalesOrder {
	if q == nil {
		return nil
	}
	for i := range orders {
		if orders[i].References(q) {
			return &orders[i]
		}
	}
	return nil
}
