package processflow

import "slices"

// State is the derived position of a deal in the pipeline.
type State struct {
	Progress
	Resolution
}

// Compute resolves the deal selected by q and calculates its progress.
// It is a pure function of its arguments and safe for concurrent use.
func Compute(snap *Snapshot, q Query) State {
	res := Resolve(snap, q)
	return State{
		Progress:   Calculate(res),
		Resolution: res,
	}
}

// CustomerStage is one row of the pipeline overview.
type CustomerStage struct {
	CustomerID     string `json:"customer_id"`
	CustomerName   string `json:"customer_name"`
	QuotationID    string `json:"quotation_id,omitempty"`
	CurrentStep    Step   `json:"current_step"`
	CompletedSteps []Step `json:"completed_steps"`
	NextAction     Action `json:"next_action"`
}

// StepCount is the number of customers whose deal currently sits at Step.
type StepCount struct {
	Step      Step   `json:"step"`
	Label     string `json:"label"`
	Customers int    `json:"customers"`
}

// PipelineOverview summarizes every customer's position.
type PipelineOverview struct {
	Customers []CustomerStage `json:"customers"`
	Funnel    []StepCount     `json:"funnel"`
}

// Overview computes the state of each customer in the snapshot and counts
// customers per current step.
func Overview(snap *Snapshot) PipelineOverview {
	overview := PipelineOverview{
		Customers: []CustomerStage{},
		Funnel:    make([]StepCount, 0, len(stepCatalogue)),
	}
	counts := make(map[Step]int, len(stepCatalogue))
	if snap != nil {
		for i := range snap.Customers {
			c := snap.Customers[i]
			state := Compute(snap, Query{CustomerID: c.ID})
			row := CustomerStage{
				CustomerID:     c.ID,
				CustomerName:   c.Name,
				CurrentStep:    state.CurrentStep,
				CompletedSteps: slices.Clone(state.CompletedSteps),
				NextAction:     state.NextAction,
			}
			if state.Quotation != nil {
				row.QuotationID = state.Quotation.ID
			}
			overview.Customers = append(overview.Customers, row)
			counts[state.CurrentStep]++
		}
	}
	for _, info := range stepCatalogue {
		overview.Funnel = append(overview.Funnel, StepCount{
			Step:      info.Step,
			Label:     info.Label,
			Customers: counts[info.Step],
		})
	}
	return overview
}
