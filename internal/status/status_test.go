package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Buckets(t *testing.T) {
	tests := []struct {
		status string
		want   Bucket
	}{
		{"", BucketActive},
		{"processing", BucketActive},
		{"pending_transfer", BucketActive},
		{"paid", BucketActive},
		{"waiting_admin_price", BucketActive},
		{"In Transit", BucketActive},
		{"delivered", BucketPast},
		{"  COMPLETED ", BucketPast},
		{"cancelled_by_admin", BucketCancelled},
		{"Canceled", BucketCancelled},
		{"order_cancelled_after_delivered", BucketCancelled},
		{"cancelled_delivery_attempt", BucketCancelled},
		{"something the admin typed", BucketActive},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.status).Bucket)
			assert.Equal(t, tt.want, BucketOf(tt.status))
		})
	}
}

func TestClassify_StageMonotonic(t *testing.T) {
	statuses := []string{Processing, Dispatched, InTransit, Delivered}

	for i, s := range statuses {
		assert.Equal(t, Stage(i), Classify(s).Stage, s)
	}
}

func TestClassify_Stages(t *testing.T) {
	tests := []struct {
		status string
		want   Stage
	}{
		{"", StageProcessing},
		{"paid", StageProcessing},
		{"Dispatched to site", StageDispatched},
		{"IN_TRANSIT", StageInTransit},
		{"dispatched, in transit", StageInTransit},
		{"delivered", StageDelivered},
		{"completed", StageProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.status).Stage)
		})
	}
}

func TestClassification_Variants(t *testing.T) {
	assert.True(t, Classify("processing").IsActive())
	assert.True(t, Classify("delivered").IsPast())
	assert.True(t, Classify("cancelled").IsCancelled())
}

func TestStageLabel(t *testing.T) {
	assert.Equal(t, "In Transit", StageInTransit.Label())
	assert.Equal(t, "Processing", Stage(42).Label())
	assert.Equal(t, "cancelled", BucketCancelled.String())
}
