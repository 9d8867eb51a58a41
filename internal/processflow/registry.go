package processflow

import (
	"errors"
	"fmt"
)

// ErrUnknownStatus marks a quotation status without a registered action.
var ErrUnknownStatus = errors.New("processflow: unknown quotation status")

// Action is the recommended next move for a deal.
type Action struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Verb        string `json:"verb"`
}

// IsNone reports whether the action carries no recommendation.
func (a Action) IsNone() bool {
	return a.Verb == ""
}

// StatusAction describes what a quotation status implies for the pipeline.
type StatusAction struct {
	Status         QuotationStatus `json:"status"`
	ExtraCompleted []Step          `json:"extra_completed"`
	CurrentStep    Step            `json:"current_step"`
	Action         Action          `json:"action"`
}

// LookupStatus returns the descriptor registered for status. Statuses
// outside the closed set yield the no-op descriptor (quotation stage, no
// extra steps, no action) together with ErrUnknownStatus.
func LookupStatus(status QuotationStatus) (StatusAction, error) {
	switch status {
	case QuotationStatusDraft:
		return StatusAction{
			Status:      status,
			CurrentStep: StepQuotationSent,
			Action: Action{
				Label:       "Submit for review",
				Description: "Complete pricing & terms, submit for review",
				Verb:        "submit_for_review",
			},
		}, nil
	case QuotationStatusUnderReview:
		return StatusAction{
			Status:      status,
			CurrentStep: StepQuotationSent,
			Action: Action{
				Label:       "Await approval",
				Description: "Await internal approval",
				Verb:        "await_approval",
			},
		}, nil
	case QuotationStatusApproved:
		return StatusAction{
			Status:      status,
			CurrentStep: StepQuotationSent,
			Action: Action{
				Label:       "Send quotation",
				Description: "Send quotation to customer",
				Verb:        "send_to_customer",
			},
		}, nil
	case QuotationStatusSent:
		return StatusAction{
			Status:         status,
			ExtraCompleted: []Step{StepQuotationSent},
			CurrentStep:    StepCustomerAcceptance,
			Action: Action{
				Label:       "Await acceptance",
				Description: "Await customer acceptance",
				Verb:        "await_acceptance",
			},
		}, nil
	case QuotationStatusAccepted:
		return StatusAction{
			Status:         status,
			ExtraCompleted: []Step{StepQuotationSent, StepCustomerAcceptance, StepOrderConfirmation},
			CurrentStep:    StepSalesOrder,
			Action: Action{
				Label:       "Create sales order",
				Description: "Create sales order",
				Verb:        "create_sales_order",
			},
		}, nil
	case QuotationStatusRejected:
		return StatusAction{
			Status:      status,
			CurrentStep: StepQuotationSent,
			Action: Action{
				Label:       "Revise and resubmit",
				Description: "Revise pricing/terms and resubmit",
				Verb:        "revise_and_resubmit",
			},
		}, nil
	case QuotationStatusRejectedByCustomer:
		return StatusAction{
			Status:         status,
			ExtraCompleted: []Step{StepQuotationSent},
			CurrentStep:    StepCustomerAcceptance,
			Action: Action{
				Label:       "Issue revised quotation",
				Description: "Review feedback, issue revised quotation",
				Verb:        "issue_revised_quotation",
			},
		}, nil
	case QuotationStatusExpired:
		return StatusAction{
			Status:      status,
			CurrentStep: StepQuotationSent,
			Action: Action{
				Label:       "Issue new revision",
				Description: "Issue new revision",
				Verb:        "issue_new_revision",
			},
		}, nil
	}
	return StatusAction{Status: status, CurrentStep: StepQuotationSent}, fmt.Errorf("%w: %q", ErrUnknownStatus, string(status))
}
