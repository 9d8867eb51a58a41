package processflow

import (
	"fmt"

	"github.com/google/uuid"
)

// Priority ranks an urgent task.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// taskNamespace seeds the deterministic task ids.
var taskNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:odyssey-erp:salesflow:tasks"))

// Task is an outstanding action derived from quotations and orders.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	ActionVerb  string   `json:"action_verb"`
	EntityType  string   `json:"entity_type"`
	EntityID    string   `json:"entity_id"`
}

// DedupKey identifies duplicate tasks.
func (t Task) DedupKey() string {
	return t.Title + "|" + t.Description
}

// TaskID returns the stable identifier for a dedup key.
func TaskID(dedupKey string) string {
	return uuid.NewSHA1(taskNamespace, []byte(dedupKey)).String()
}

// DeriveUrgentTasks lists outstanding actions in discovery order: all
// quotations first, then sales orders. Tasks with the same title and
// description are reported once. A positive limit caps the result to the
// first limit tasks; the cap follows discovery order, not priority.
func DeriveUrgentTasks(quotations []Quotation, orders []SalesOrder, limit int) []Task {
	seen := make(map[string]struct{})
	tasks := make([]Task, 0)

	add := func(t Task) bool {
		key := t.DedupKey()
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
		t.ID = TaskID(key)
		tasks = append(tasks, t)
		return limit <= 0 || len(tasks) < limit
	}

	for i := range quotations {
		t, ok := quotationTask(quotations[i], orders)
		if !ok {
			continue
		}
		if !add(t) {
			return tasks
		}
	}
	for i := range orders {
		t, ok := salesOrderTask(orders[i])
		if !ok {
			continue
		}
		if !add(t) {
			return tasks
		}
	}
	return tasks
}

func quotationTask(q Quotation, orders []SalesOrder) (Task, bool) {
	ref := firstNonEmpty(q.Number, q.ID)
	subject := fmt.Sprintf("Quotation %s for %s (%s)", ref, q.DisplayCustomer(), formatAmount(q.Currency, q.TotalAmount))
	task := Task{EntityType: "quotation", EntityID: q.ID}

	switch q.Status {
	case QuotationStatusDraft:
		task.Title = "Review draft quotation"
		task.Description = subject + " is still in draft"
		task.Priority = PriorityUrgent
		task.ActionVerb = "review"
	case QuotationStatusUnderReview:
		task.Title = "Approve quotation"
		task.Description = subject + " is awaiting approval"
		task.Priority = PriorityHigh
		task.ActionVerb = "approve"
	case QuotationStatusSent:
		task.Title = "Follow up on quotation"
		task.Description = subject + " awaits the customer's response"
		task.Priority = PriorityMedium
		task.ActionVerb = "follow_up"
	case QuotationStatusAccepted:
		for i := range orders {
			if orders[i].References(&q) {
				return Task{}, false
			}
		}
		task.Title = "Create sales order"
		task.Description = subject + " was accepted"
		task.Priority = PriorityUrgent
		task.ActionVerb = "create_sales_order"
	case QuotationStatusExpired:
		task.Title = "Renew expired quotation"
		task.Description = subject + " has expired"
		task.Priority = PriorityHigh
		task.ActionVerb = "renew"
	default:
		return Task{}, false
	}
	return task, true
}

func salesOrderTask(o SalesOrder) (Task, bool) {
	if o.Status != SalesOrderStatusDraft {
		return Task{}, false
	}
	customer := firstNonEmpty(o.CustomerName, o.CustomerID)
	return Task{
		Title:       "Validate sales order",
		Description: fmt.Sprintf("Sales order %s for %s (%s) is still in draft", firstNonEmpty(o.Number, o.ID), customer, formatAmount(o.Currency, o.TotalAmount)),
		Priority:    PriorityHigh,
		ActionVerb:  "validate",
		EntityType:  "sales_order",
		EntityID:    o.ID,
	}, true
}

// FilterAcknowledged returns the tasks whose id is not in acknowledged.
// The input slice is left untouched.
func FilterAcknowledged(tasks []Task, acknowledged map[string]struct{}) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := acknowledged[t.ID]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}
