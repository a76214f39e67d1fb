package orderview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sachio/sachio-orders-service/internal/errors"
	"github.com/sachio/sachio-orders-service/internal/models"
	"github.com/sachio/sachio-orders-service/internal/money"
	"github.com/sachio/sachio-orders-service/internal/status"
)

func order(id, userID, st string) *models.Order {
	return &models.Order{ID: id, UserID: userID, Status: st, Type: models.OrderTypeBuy}
}

func TestGroup_Completeness(t *testing.T) {
	orders := []*models.Order{
		order("1", "U1", "processing"),
		order("2", "U1", "delivered"),
		order("3", "U1", "cancelled_by_admin"),
		order("4", "U2", "In Transit"),
		order("5", "U1", "completed"),
		order("6", "U1", ""),
		order("7", "U1", "order_cancelled_after_delivered"),
	}

	g := Group(orders)

	seen := make(map[string]int)
	for _, bucket := range [][]*models.Order{g.Active, g.Past, g.Cancelled} {
		for _, o := range bucket {
			seen[o.ID]++
		}
	}
	assert.Len(t, seen, len(orders))
	for id, n := range seen {
		assert.Equal(t, 1, n, "order %s appears %d times", id, n)
	}
	assert.Equal(t, len(orders), g.Len())

	assert.Equal(t, []string{"1", "4", "6"}, ids(g.Active))
	assert.Equal(t, []string{"2", "5"}, ids(g.Past))
	assert.Equal(t, []string{"3", "7"}, ids(g.Cancelled))
}

func TestGroupWith_CacheInvalidatesOnStatusChange(t *testing.T) {
	c := NewClassifier()
	o := order("1", "U1", "processing")

	assert.Len(t, GroupWith(c, []*models.Order{o}).Active, 1)

	o.Status = "delivered"
	g := GroupWith(c, []*models.Order{o})
	assert.Empty(t, g.Active)
	assert.Len(t, g.Past, 1)

	c.Retain([]*models.Order{o})
	assert.Len(t, c.cache, 1)
}

func TestBadgeCount(t *testing.T) {
	orders := []*models.Order{
		order("1", "U1", "processing"),
		order("2", "U1", "dispatched"),
		order("3", "U1", "delivered"),
		order("4", "U2", "processing"),
		order("5", "U1", "cancelled"),
	}

	assert.Equal(t, 2, BadgeCount(orders, "U1"))
	assert.Equal(t, 1, BadgeCount(orders, "U2"))
	assert.Equal(t, 0, BadgeCount(orders, ""))
}

func TestFormatTotal_FieldPreference(t *testing.T) {
	tests := []struct {
		name  string
		order models.Order
		want  string
	}{
		{
			name: "total wins",
			order: models.Order{
				Total:  money.NewRawAmount("9,000"),
				Amount: money.NewRawAmount(5000),
				Price:  money.NewRawAmount(1),
			},
			want: "NGN 9,000",
		},
		{
			name: "unparseable total falls through to amount",
			order: models.Order{
				Total:  money.NewRawAmount("tbd"),
				Amount: money.NewRawAmount(5000),
			},
			want: "NGN 5,000",
		},
		{
			name:  "price last",
			order: models.Order{Price: money.NewRawAmount("₦12,500")},
			want:  "NGN 12,500",
		},
		{
			name:  "nothing usable",
			order: models.Order{Price: money.NewRawAmount("")},
			want:  money.UnknownSentinel,
		},
		{
			name:  "explicit zero is still zero",
			order: models.Order{Total: money.NewRawAmount(0)},
			want:  "NGN 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTotal(&tt.order))
		})
	}
}

func TestDisplayTitle(t *testing.T) {
	items := func(titles ...string) []models.OrderItem {
		out := make([]models.OrderItem, len(titles))
		for i, title := range titles {
			out[i] = models.OrderItem{Title: title}
		}
		return out
	}

	assert.Equal(t, "VIP Cabin", DisplayTitle(&models.Order{ProductTitle: "VIP Cabin", Items: items("a")}))
	assert.Equal(t, "Standard", DisplayTitle(&models.Order{Items: items("Standard")}))
	assert.Equal(t, "Standard, Deluxe", DisplayTitle(&models.Order{Items: items("Standard", "Deluxe")}))
	assert.Equal(t, "Standard, Deluxe +2 more", DisplayTitle(&models.Order{Items: items("Standard", "Deluxe", "Trailer", "Sink")}))
	assert.Equal(t, "Order", DisplayTitle(&models.Order{}))
}

func TestCanView_FailClosed(t *testing.T) {
	o := order("1", "U1", "processing")

	assert.False(t, CanView(o, nil))
	assert.False(t, CanView(o, &Viewer{ID: "U2"}))
	assert.True(t, CanView(o, &Viewer{ID: "U1"}))

	assert.False(t, CanView(order("2", "", "processing"), &Viewer{ID: ""}))
	assert.False(t, CanView(order("2", "", "processing"), &Viewer{ID: "U1"}))
	assert.False(t, CanView(nil, &Viewer{ID: "U1"}))
}

func TestBuildDetail(t *testing.T) {
	o := order("1", "U1", "dispatched")
	o.Total = money.NewRawAmount(20000)

	_, err := BuildDetail(o, nil)
	assert.ErrorIs(t, err, errors.ErrUnauthenticated)

	d, err := BuildDetail(o, &Viewer{ID: "U2"})
	assert.ErrorIs(t, err, errors.ErrForbidden)
	assert.Nil(t, d)

	d, err = BuildDetail(o, &Viewer{ID: "U1"})
	require.NoError(t, err)
	assert.Equal(t, "NGN 20,000", d.Total)
	assert.Equal(t, status.StageDispatched, d.Timeline.StageIndex)
}

func TestBuildTimeline(t *testing.T) {
	tl := BuildTimeline(order("1", "U1", "in_transit"))
	require.Len(t, tl.Steps, 4)
	assert.Equal(t, []bool{true, true, true, false}, reached(tl))
	assert.True(t, tl.Steps[2].Current)
	assert.Nil(t, tl.Rental)

	tl = BuildTimeline(order("2", "U1", "completed"))
	assert.Equal(t, []bool{true, true, true, true}, reached(tl))
	assert.Equal(t, status.BucketPast, tl.Bucket)

	tl = BuildTimeline(order("3", "U1", "cancelled_by_admin"))
	assert.Equal(t, []bool{false, false, false, false}, reached(tl))
}

func TestBuildTimeline_Rental(t *testing.T) {
	o := order("1", "U1", "waiting_admin_price")
	o.Type = models.OrderTypeRent
	o.RentalStartDate = "2024-06-01"

	tl := BuildTimeline(o)
	require.NotNil(t, tl.Rental)
	assert.Equal(t, "2024-06-01", tl.Rental.Start)
	assert.Equal(t, Placeholder, tl.Rental.End)
	assert.Equal(t, status.StageProcessing, tl.StageIndex)
}

func ids(orders []*models.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func reached(tl Timeline) []bool {
	out := make([]bool, len(tl.Steps))
	for i, s := range tl.Steps {
		out[i] = s.Reached
	}
	return out
}
