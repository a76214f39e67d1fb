// Package status classifies free-text order status strings into lifecycle
// buckets and timeline stages.
//
// Statuses are typed by administrators with no shared enum, so matching is
// by case-insensitive substring. Precedence is fixed: cancel beats the
// terminal keywords (delivered, completed), which beat the in-progress stage
// keywords.
package status

import "strings"

// Statuses written by this service. Administrators may write anything else.
const (
	PendingTransfer   = "pending_transfer"
	Paid              = "paid"
	WaitingAdminPrice = "waiting_admin_price"
	Processing        = "processing"
	Dispatched        = "dispatched"
	InTransit         = "in_transit"
	Delivered         = "delivered"
	Completed         = "completed"
	CancelledByAdmin  = "cancelled_by_admin"
)

// Bucket is the coarse lifecycle grouping of an order.
type Bucket int

const (
	BucketActive Bucket = iota
	BucketPast
	BucketCancelled
)

func (b Bucket) String() string {
	switch b {
	case BucketPast:
		return "past"
	case BucketCancelled:
		return "cancelled"
	default:
		return "active"
	}
}

func (b Bucket) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// Stage is a position on the four-step delivery timeline.
type Stage int

const (
	StageProcessing Stage = iota
	StageDispatched
	StageInTransit
	StageDelivered
)

// Stages lists every timeline stage in order.
var Stages = []Stage{StageProcessing, StageDispatched, StageInTransit, StageDelivered}

var stageKeywords = [...]string{
	StageProcessing: "process",
	StageDispatched: "dispatch",
	StageInTransit:  "transit",
	StageDelivered:  "deliver",
}

var stageLabels = [...]string{
	StageProcessing: "Processing",
	StageDispatched: "Dispatched",
	StageInTransit:  "In Transit",
	StageDelivered:  "Delivered",
}

// Label is the display name of the stage.
func (s Stage) Label() string {
	if s < StageProcessing || s > StageDelivered {
		return stageLabels[StageProcessing]
	}
	return stageLabels[s]
}

func (s Stage) String() string { return s.Label() }

// Classification is the derived state of a status string. Downstream code
// branches on it instead of on raw strings.
type Classification struct {
	Bucket Bucket `json:"bucket"`
	Stage  Stage  `json:"stage_index"`
}

func (c Classification) IsActive() bool    { return c.Bucket == BucketActive }
func (c Classification) IsPast() bool      { return c.Bucket == BucketPast }
func (c Classification) IsCancelled() bool { return c.Bucket == BucketCancelled }

// Normalize lower-cases and trims a status. Empty means processing.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return Processing
	}
	return s
}

// Classify maps a status string to its bucket and timeline stage.
func Classify(raw string) Classification {
	s := Normalize(raw)
	return Classification{
		Bucket: bucketOf(s),
		Stage:  stageOf(s),
	}
}

// BucketOf is Classify(raw).Bucket.
func BucketOf(raw string) Bucket { return bucketOf(Normalize(raw)) }

func bucketOf(s string) Bucket {
	switch {
	case strings.Contains(s, "cancel"):
		return BucketCancelled
	case strings.Contains(s, "delivered"), strings.Contains(s, "completed"):
		return BucketPast
	default:
		return BucketActive
	}
}

func stageOf(s string) Stage {
	for i := len(stageKeywords) - 1; i >= 0; i-- {
		if strings.Contains(s, stageKeywords[i]) {
			return Stage(i)
		}
	}
	return StageProcessing
}
