package processflow

import (
	"fmt"
	"iter"
	"slices"
	"time"
)

// Activity actions emitted by the timeline.
const (
	ActivityEnquiryCreated    = "enquiry_created"
	ActivityQuotationCreated  = "quotation_created"
	ActivityQuotationSent     = "quotation_sent"
	ActivitySalesOrderCreated = "sales_order_created"
)

// Activity is one entry of the deal's activity trail.
type Activity struct {
	Action      string    `json:"action"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	ActorHint   string    `json:"actor_hint,omitempty"`
	EntityType  string    `json:"entity_type"`
	EntityID    string    `json:"entity_id"`
}

// Timeline yields the activities of the resolved deal, newest first. The
// events are assembled on the first pull; events whose timestamp is absent
// are skipped.
func Timeline(res Resolution) iter.Seq[Activity] {
	return func(yield func(Activity) bool) {
		for _, activity := range buildActivities(res) {
			if !yield(activity) {
				return
			}
		}
	}
}

// CollectTimeline materializes Timeline into a slice.
func CollectTimeline(res Resolution) []Activity {
	activities := slices.Collect(Timeline(res))
	if activities == nil {
		return []Activity{}
	}
	return activities
}

func buildActivities(res Resolution) []Activity {
	activities := make([]Activity, 0, 5)

	if e := res.Enquiry; e != nil && !e.CreatedAt.IsZero() {
		activities = append(activities, Activity{
			Action:      ActivityEnquiryCreated,
			Description: fmt.Sprintf("Enquiry %s captured", firstNonEmpty(e.Number, e.ID)),
			Timestamp:   e.CreatedAt,
			ActorHint:   e.CreatedBy,
			EntityType:  "enquiry",
			EntityID:    e.ID,
		})
	}

	if q := res.Quotation; q != nil {
		ref := firstNonEmpty(q.Number, q.ID)
		if !q.CreatedAt.IsZero() {
			activities = append(activities, Activity{
				Action:      ActivityQuotationCreated,
				Description: fmt.Sprintf("Quotation %s created for %s (%s)", ref, q.DisplayCustomer(), formatAmount(q.Currency, q.TotalAmount)),
				Timestamp:   q.CreatedAt,
				ActorHint:   q.CreatedBy,
				EntityType:  "quotation",
				EntityID:    q.ID,
			})
		}
		if sentAt := q.sentTime(); !sentAt.IsZero() {
			activities = append(activities, Activity{
				Action:      ActivityQuotationSent,
				Description: fmt.Sprintf("Quotation %s sent to %s", ref, q.DisplayCustomer()),
				Timestamp:   sentAt,
				ActorHint:   q.CreatedBy,
				EntityType:  "quotation",
				EntityID:    q.ID,
			})
		}
		if decidedAt := q.decisionTime(); !decidedAt.IsZero() {
			activities = append(activities, Activity{
				Action:      decisionAction(q.Status),
				Description: fmt.Sprintf("Quotation %s marked %s", ref, q.Status),
				Timestamp:   decidedAt,
				EntityType:  "quotation",
				EntityID:    q.ID,
			})
		}
	}

	if o := res.SalesOrder; o != nil && !o.CreatedAt.IsZero() {
		activities = append(activities, Activity{
			Action:      ActivitySalesOrderCreated,
			Description: fmt.Sprintf("Sales order %s created (%s)", firstNonEmpty(o.Number, o.ID), formatAmount(o.Currency, o.TotalAmount)),
			Timestamp:   o.CreatedAt,
			ActorHint:   o.CreatedBy,
			EntityType:  "sales_order",
			EntityID:    o.ID,
		})
	}

	slices.SortStableFunc(activities, func(a, b Activity) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return activities
}

// sentTime is when the quotation went out. Without an explicit send time the
// last update stands in, but only while the quotation still sits at Sent.
func (q *Quotation) sentTime() time.Time {
	if !q.SentAt.IsZero() {
		return q.SentAt
	}
	if q.Status == QuotationStatusSent {
		return q.UpdatedAt
	}
	return time.Time{}
}

// decisionTime is when a decision status was reached, falling back to the
// last update. Non-decision statuses have none.
func (q *Quotation) decisionTime() time.Time {
	if !q.Status.IsDecision() {
		return time.Time{}
	}
	if !q.DecidedAt.IsZero() {
		return q.DecidedAt
	}
	return q.UpdatedAt
}

func decisionAction(status QuotationStatus) string {
	switch status {
	case QuotationStatusAccepted:
		return "quotation_accepted"
	case QuotationStatusRejected:
		return "quotation_rejected"
	case QuotationStatusRejectedByCustomer:
		return "quotation_rejected_by_customer"
	case QuotationStatusExpired:
		return "quotation_expired"
	}
	return "quotation_updated"
}
