package cart

import (
	"github.com/sachio/sachio-orders-service/internal/models"
	"github.com/sachio/sachio-orders-service/internal/money"
)

// Line is the display form of a cart line. Unknown prices render as the
// sentinel instead of zero.
type Line struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Qty       int    `json:"qty"`
	UnitPrice string `json:"unitPrice"`
	Subtotal  string `json:"subtotal"`
	Priced    bool   `json:"priced"`
}

// Summary is the display form of the whole cart.
type Summary struct {
	Lines             []Line `json:"lines"`
	Total             string `json:"total"`
	Shipping          string `json:"shipping"`
	TotalWithShipping string `json:"totalWithShipping"`
	HasUnpricedLines  bool   `json:"hasUnpricedLines"`
}

// Total sums price × qty over every line. Lines whose price does not
// normalize count as zero; this is the checkout figure, not a display value.
func (c *Cart) Total() money.Amount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return total(c.items)
}

// TotalWithShipping adds ShippingFee when the cart has any line.
func (c *Cart) TotalWithShipping() money.Amount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return totalWithShipping(c.items)
}

// Summary builds the per-line display and formatted totals.
func (c *Cart) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{
		Lines:             make([]Line, 0, len(c.items)),
		Total:             money.Format(total(c.items)),
		Shipping:          money.Format(shipping(c.items)),
		TotalWithShipping: money.Format(totalWithShipping(c.items)),
	}
	for _, it := range c.items {
		line := Line{
			ID:       it.ID,
			Title:    it.Title,
			ImageURL: it.ImageURL,
			Qty:      it.Qty,
		}
		price := money.Normalize(it.Price)
		line.UnitPrice = money.FormatOrUnknown(price)
		if price != nil {
			line.Priced = true
			line.Subtotal = money.Format(price.Mul(it.Qty))
		} else {
			line.Subtotal = money.UnknownSentinel
			s.HasUnpricedLines = true
		}
		s.Lines = append(s.Lines, line)
	}
	return s
}

// OrderItems converts the lines into order items for checkout.
func (c *Cart) OrderItems() []models.OrderItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.OrderItem, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, models.OrderItem{
			ProductID: it.ID,
			Title:     it.Title,
			Price:     it.Price,
			Qty:       it.Qty,
		})
	}
	return out
}

func total(items []models.CartItem) money.Amount {
	sum := money.Zero
	for _, it := range items {
		if p := money.Normalize(it.Price); p != nil {
			sum = sum.Add(p.Mul(it.Qty))
		}
	}
	return sum
}

func shipping(items []models.CartItem) money.Amount {
	if len(items) == 0 {
		return money.Zero
	}
	return ShippingFee
}

func totalWithShipping(items []models.CartItem) money.Amount {
	return total(items).Add(shipping(items))
}
