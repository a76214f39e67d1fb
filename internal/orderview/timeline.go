package orderview

import (
	"github.com/sachio/sachio-orders-service/internal/errors"
	"github.com/sachio/sachio-orders-service/internal/models"
	"github.com/sachio/sachio-orders-service/internal/status"
)

// Step is one position on the delivery timeline.
type Step struct {
	Label   string `json:"label"`
	Reached bool   `json:"reached"`
	Current bool   `json:"current"`
}

// RentalWindow carries the rental dates as the client stored them.
type RentalWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Timeline is the rendering input for the order progress tracker.
type Timeline struct {
	Bucket     status.Bucket `json:"bucket"`
	StageIndex status.Stage  `json:"stage_index"`
	Steps      []Step        `json:"steps"`
	Rental     *RentalWindow `json:"rental,omitempty"`
}

// BuildTimeline derives the four-stage tracker for an order. Buy and rent
// orders share the stages; past orders show every stage reached.
func BuildTimeline(o *models.Order) Timeline {
	cl := status.Classify(o.Status)

	current := cl.Stage
	if cl.IsPast() {
		current = status.StageDelivered
	}

	steps := make([]Step, len(status.Stages))
	for i, st := range status.Stages {
		steps[i] = Step{
			Label:   st.Label(),
			Reached: !cl.IsCancelled() && st <= current,
			Current: !cl.IsCancelled() && st == current,
		}
	}

	tl := Timeline{
		Bucket:     cl.Bucket,
		StageIndex: current,
		Steps:      steps,
	}
	if o.IsRental() {
		tl.Rental = &RentalWindow{
			Start: orPlaceholder(o.RentalStartDate),
			End:   orPlaceholder(o.RentalEndDate),
		}
	}
	return tl
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

// Summary is one row of a grouped order list.
type Summary struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Status    string           `json:"status"`
	Type      models.OrderType `json:"type"`
	Bucket    status.Bucket    `json:"bucket"`
	Total     string           `json:"total"`
	CreatedAt models.Timestamp `json:"createdAt"`
}

// Detail is the authorized single-order view.
type Detail struct {
	Summary
	Timeline         Timeline           `json:"timeline"`
	Items            []models.OrderItem `json:"items,omitempty"`
	PaymentReference string             `json:"paymentReference,omitempty"`
	DeliveryAddress  string             `json:"deliveryAddress,omitempty"`
}

// Summarize builds the list row for an order.
func Summarize(o *models.Order) Summary {
	return Summary{
		ID:        o.ID,
		Title:     DisplayTitle(o),
		Status:    o.Status,
		Type:      o.Type,
		Bucket:    status.BucketOf(o.Status),
		Total:     FormatTotal(o),
		CreatedAt: o.CreatedAt,
	}
}

// BuildDetail returns the detail view, or ErrForbidden with no order data
// when the viewer may not see it.
func BuildDetail(o *models.Order, viewer *Viewer) (*Detail, error) {
	if viewer == nil || viewer.ID == "" {
		return nil, errors.ErrUnauthenticated
	}
	if !CanView(o, viewer) {
		return nil, errors.ErrForbidden
	}
	return &Detail{
		Summary:          Summarize(o),
		Timeline:         BuildTimeline(o),
		Items:            o.Items,
		PaymentReference: o.PaymentReference,
		DeliveryAddress:  o.DeliveryAddress,
	}, nil
}

// GroupedSummaries is the list view sent to the client.
type GroupedSummaries struct {
	Active    []Summary `json:"active"`
	Past      []Summary `json:"past"`
	Cancelled []Summary `json:"cancelled"`
	Badge     int       `json:"badge"`
	Stale     bool      `json:"stale"`
}

// Summaries converts groups into list rows.
func Summaries(g Groups) GroupedSummaries {
	return GroupedSummaries{
		Active:    summarizeAll(g.Active),
		Past:      summarizeAll(g.Past),
		Cancelled: summarizeAll(g.Cancelled),
	}
}

func summarizeAll(orders []*models.Order) []Summary {
	out := make([]Summary, 0, len(orders))
	for _, o := range orders {
		out = append(out, Summarize(o))
	}
	return out
}
