package processflow

import (
	"errors"
	"slices"
)

// Step is a position in the customer-to-order pipeline.
type Step int

const (
	StepNone Step = iota
	StepCustomer
	StepEnquiry
	StepQuotation
	StepQuotationSent
	StepCustomerAcceptance
	StepOrderConfirmation
	StepSalesOrder
	StepFulfilment
)

// StepInfo describes a pipeline step for presentation layers.
type StepInfo struct {
	Step        Step   `json:"step"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var stepCatalogue = []StepInfo{
	{StepCustomer, "Customer", "Customer registered"},
	{StepEnquiry, "Enquiry", "Enquiry captured"},
	{StepQuotation, "Quotation", "Quotation prepared"},
	{StepQuotationSent, "Quotation Sent", "Quotation approved and sent to customer"},
	{StepCustomerAcceptance, "Customer Acceptance", "Customer decision received"},
	{StepOrderConfirmation, "Order Confirmation", "Accepted quotation confirmed for ordering"},
	{StepSalesOrder, "Sales Order", "Sales order raised from quotation"},
	{StepFulfilment, "Fulfilment & Invoicing", "Delivery and invoicing of the order"},
}

// Steps returns the fixed step catalogue in pipeline order.
func Steps() []StepInfo {
	return slices.Clone(stepCatalogue)
}

// Label returns the human readable step name.
func (s Step) Label() string {
	for _, info := range stepCatalogue {
		if info.Step == s {
			return info.Label
		}
	}
	return ""
}

// Actions for steps that do not depend on a quotation status.
var (
	actionRegisterCustomer = Action{Label: "Register customer", Description: "Register the customer to start the process", Verb: "register_customer"}
	actionCaptureEnquiry   = Action{Label: "Capture enquiry", Description: "Record the customer's enquiry", Verb: "capture_enquiry"}
	actionPrepareQuotation = Action{Label: "Prepare quotation", Description: "Prepare a quotation for the enquiry", Verb: "prepare_quotation"}
	actionFulfilOrder      = Action{Label: "Fulfil order", Description: "Deliver the order and raise the invoice", Verb: "fulfil_order"}
)

// Progress is the calculator output.
type Progress struct {
	CurrentStep    Step   `json:"current_step"`
	CompletedSteps []Step `json:"completed_steps"`
	NextAction     Action `json:"next_action"`
	UnknownStatus  bool   `json:"unknown_status"`
}

// IsCompleted reports whether step is in the completed set.
func (p Progress) IsCompleted(step Step) bool {
	return slices.Contains(p.CompletedSteps, step)
}

// Calculate derives the current step and completed steps from the resolved
// entities. Every rule only adds to the completed set.
func Calculate(res Resolution) Progress {
	completed := make(map[Step]struct{}, len(stepCatalogue))
	current := StepCustomer
	next := actionRegisterCustomer
	unknown := false

	if res.Customer != nil {
		completed[StepCustomer] = struct{}{}
		current = StepEnquiry
		next = actionCaptureEnquiry
	}
	if res.Enquiry != nil {
		completed[StepEnquiry] = struct{}{}
		current = StepQuotation
		next = actionPrepareQuotation
	}
	if res.Quotation != nil {
		completed[StepQuotation] = struct{}{}
		current = StepQuotationSent

		descriptor, err := LookupStatus(res.Quotation.Status)
		if errors.Is(err, ErrUnknownStatus) {
			unknown = true
		}
		for _, step := range descriptor.ExtraCompleted {
			completed[step] = struct{}{}
		}
		current = descriptor.CurrentStep
		next = descriptor.Action
	}
	if res.SalesOrder != nil {
		completed[StepSalesOrder] = struct{}{}
		current = StepFulfilment
		next = actionFulfilOrder
	}

	steps := make([]Step, 0, len(completed))
	for step := range completed {
		steps = append(steps, step)
	}
	slices.Sort(steps)

	return Progress{
		CurrentStep:    current,
		CompletedSteps: steps,
		NextAction:     next,
		UnknownStatus:  unknown,
	}
}
