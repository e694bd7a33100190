package draft

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/kv"
	"github.com/fjod/go_cart/storefront/internal/promotion"
)

const MaxQuantity = 99

var ErrLineNotFound = errors.New("cart line not found")

// Cart holds the cart lines of one browser profile in insertion order.
type Cart struct {
	blob blob[domain.CartLine]
	now  func() time.Time

	once  sync.Once
	mu    sync.Mutex
	lines []domain.CartLine
}

func NewCart(store kv.Store, sessionID string) *Cart {
	return &Cart{
		blob: blob[domain.CartLine]{store: store, key: kv.Key(sessionID, "cart")},
		now:  time.Now,
	}
}

// hydrate loads persisted lines exactly once, on first use.
func (c *Cart) hydrate(ctx context.Context) {
	c.once.Do(func() {
		loaded := c.blob.load(ctx)
		lines := make([]domain.CartLine, 0, len(loaded))
		for _, l := range loaded {
			if !l.Identity.Valid() || indexOfLine(lines, l.Identity) >= 0 {
				continue
			}
			l.Quantity = clampQuantity(l.Quantity)
			lines = append(lines, l)
		}
		c.lines = lines
	})
}

// Add upserts a line: an existing identity gets quantity added to it, a new
// one is appended. quantity is clamped to at least 1, and the resulting
// line quantity is capped at MaxQuantity.
func (c *Cart) Add(ctx context.Context, item domain.StoreItemInput, quantity int) (domain.CartLine, error) {
	line, err := item.CartLine(quantity)
	if err != nil {
		return domain.CartLine{}, err
	}
	c.hydrate(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := indexOfLine(c.lines, line.Identity); i >= 0 {
		existing := &c.lines[i]
		existing.Quantity = clampQuantity(existing.Quantity + line.Quantity)
		// refresh display fields from the newer producer
		if line.Name != "" {
			existing.Name = line.Name
		}
		if line.Image != "" {
			existing.Image = line.Image
		}
		if line.UnitPriceLabel != "" {
			existing.UnitPriceLabel = line.UnitPriceLabel
			existing.OriginalPriceLabel = line.OriginalPriceLabel
		}
		c.blob.save(ctx, c.lines)
		return *existing, nil
	}

	line.Quantity = clampQuantity(line.Quantity)
	line.AddedAt = c.now()
	c.lines = append(c.lines, line)
	c.blob.save(ctx, c.lines)
	return line, nil
}

// SetQuantity overwrites a line's quantity; zero or less removes the line.
func (c *Cart) SetQuantity(ctx context.Context, id domain.Identity, quantity int) error {
	c.hydrate(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	i := indexOfLine(c.lines, id)
	if i < 0 {
		return ErrLineNotFound
	}
	if quantity <= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	} else {
		c.lines[i].Quantity = clampQuantity(quantity)
	}
	c.blob.save(ctx, c.lines)
	return nil
}

// Remove drops a line and reports whether it was present.
func (c *Cart) Remove(ctx context.Context, id domain.Identity) bool {
	c.hydrate(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	i := indexOfLine(c.lines, id)
	if i < 0 {
		return false
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	c.blob.save(ctx, c.lines)
	return true
}

func (c *Cart) Clear(ctx context.Context) {
	c.hydrate(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.blob.clear(ctx)
}

func (c *Cart) Lines(ctx context.Context) []domain.CartLine {
	c.hydrate(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Count is the number of distinct lines, not the summed quantity.
func (c *Cart) Count(ctx context.Context) int {
	c.hydrate(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// TotalCents sums unit price times quantity; unparseable labels count as
// zero. The sum saturates at math.MaxInt64.
func (c *Cart) TotalCents(ctx context.Context) int64 {
	var total int64
	for _, l := range c.Lines(ctx) {
		cents, ok := promotion.ParsePriceLabel(l.UnitPriceLabel)
		if !ok || cents == 0 || l.Quantity <= 0 {
			continue
		}
		qty := int64(l.Quantity)
		if cents > math.MaxInt64/qty {
			return math.MaxInt64
		}
		line := cents * qty
		if total > math.MaxInt64-line {
			return math.MaxInt64
		}
		total += line
	}
	return total
}

func indexOfLine(lines []domain.CartLine, id domain.Identity) int {
	for i := range lines {
		if lines[i].Identity.Equal(id) {
			return i
		}
	}
	return -1
}

func clampQuantity(q int) int {
	if q < 1 {
		return 1
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}
