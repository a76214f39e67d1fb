// Package orderview derives what the client shows for a list of orders:
// lifecycle groups, badge counts, formatted totals, timelines and the
// fail-closed detail authorization.
package orderview

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sachio/sachio-orders-service/internal/models"
	"github.com/sachio/sachio-orders-service/internal/money"
	"github.com/sachio/sachio-orders-service/internal/status"
)

// Placeholder stands in for an absent rental date.
const Placeholder = "—"

const maxTitleItems = 2

// Viewer is the authenticated user looking at orders.
type Viewer struct {
	ID    string
	Email string
	Admin bool
}

// Groups partitions orders by lifecycle bucket, preserving input order.
type Groups struct {
	Active    []*models.Order `json:"active"`
	Past      []*models.Order `json:"past"`
	Cancelled []*models.Order `json:"cancelled"`
}

// Len is the number of orders across all buckets.
func (g Groups) Len() int {
	return len(g.Active) + len(g.Past) + len(g.Cancelled)
}

// Classifier memoizes status classification by order id and status string.
// A status overwrite changes the key, so stale entries are never read.
type Classifier struct {
	mu    sync.Mutex
	cache map[string]status.Classification
}

func NewClassifier() *Classifier {
	return &Classifier{cache: make(map[string]status.Classification)}
}

// Classify returns the classification of the order's current status.
func (c *Classifier) Classify(o *models.Order) status.Classification {
	if c == nil {
		return status.Classify(o.Status)
	}
	key := o.ID + "\x00" + o.Status

	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.cache[key]; ok {
		return cl
	}
	cl := status.Classify(o.Status)
	c.cache[key] = cl
	return cl
}

// Retain drops cache entries for orders not in the given list.
func (c *Classifier) Retain(orders []*models.Order) {
	keep := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		keep[o.ID+"\x00"+o.Status] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.cache {
		if _, ok := keep[k]; !ok {
			delete(c.cache, k)
		}
	}
}

// Group partitions orders into active, past and cancelled. Bucket membership
// depends on the status string alone.
func Group(orders []*models.Order) Groups {
	return GroupWith(nil, orders)
}

// GroupWith is Group using a memoizing classifier.
func GroupWith(c *Classifier, orders []*models.Order) Groups {
	g := Groups{
		Active:    make([]*models.Order, 0),
		Past:      make([]*models.Order, 0),
		Cancelled: make([]*models.Order, 0),
	}
	for _, o := range orders {
		if o == nil {
			continue
		}
		switch c.Classify(o).Bucket {
		case status.BucketCancelled:
			g.Cancelled = append(g.Cancelled, o)
		case status.BucketPast:
			g.Past = append(g.Past, o)
		default:
			g.Active = append(g.Active, o)
		}
	}
	return g
}

// BadgeCount counts active orders owned by viewerID.
func BadgeCount(orders []*models.Order, viewerID string) int {
	if viewerID == "" {
		return 0
	}
	n := 0
	for _, o := range orders {
		if o != nil && o.UserID == viewerID && status.BucketOf(o.Status) == status.BucketActive {
			n++
		}
	}
	return n
}

// ResolveAmount picks the first of total, amount and price that normalizes.
func ResolveAmount(o *models.Order) (money.Amount, bool) {
	return money.FirstOf(o.Total, o.Amount, o.Price)
}

// FormatTotal renders the order value, or the unknown sentinel. It never
// renders zero for a missing amount.
func FormatTotal(o *models.Order) string {
	a, ok := ResolveAmount(o)
	if !ok {
		return money.UnknownSentinel
	}
	return money.Format(a)
}

// DisplayTitle prefers productTitle, then up to two item titles with a
// "+N more" suffix.
func DisplayTitle(o *models.Order) string {
	if t := strings.TrimSpace(o.ProductTitle); t != "" {
		return t
	}

	titles := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		if t := strings.TrimSpace(it.Title); t != "" {
			titles = append(titles, t)
		}
	}
	if len(titles) == 0 {
		return "Order"
	}
	if len(titles) <= maxTitleItems {
		return strings.Join(titles, ", ")
	}
	return fmt.Sprintf("%s +%d more", strings.Join(titles[:maxTitleItems], ", "), len(titles)-maxTitleItems)
}

// CanView reports whether viewer may open the order. A missing viewer, a
// viewer without an id, or an order without an owner all deny.
func CanView(o *models.Order, viewer *Viewer) bool {
	if o == nil || viewer == nil {
		return false
	}
	if viewer.ID == "" || o.UserID == "" {
		return false
	}
	return o.UserID == viewer.ID
}
