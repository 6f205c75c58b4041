package pricing

import (
	"bytes"
	"errors"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	// ErrInvalidDiscount is returned when a selector names a discount that is
	// missing from the product or not currently active.
	ErrInvalidDiscount = errors.New("invalid or inactive discount")
)

// NoDiscount is the selector sentinel meaning "explicitly no discount".
var NoDiscount = uuid.Nil

// IsActive reports whether the discount's date range includes the reference
// date. Missing bounds are open-ended.
func IsActive(d *domain.Discount, on time.Time) bool {
	day := truncateToDay(on)
	if d.StartDate != nil && truncateToDay(*d.StartDate).After(day) {
		return false
	}
	if d.EndDate != nil && truncateToDay(*d.EndDate).Before(day) {
		return false
	}
	return true
}

// BestActive returns the active discount with the highest percentage, or nil
// when the product has no active discounts. Among equal percentages the
// discount with the smallest id (bytewise) wins, so selection does not depend
// on row order.
func BestActive(product *domain.Product, on time.Time) *domain.Discount {
	var best *domain.Discount
	for i := range product.Discounts {
		d := &product.Discounts[i]
		if !IsActive(d, on) {
			continue
		}
		if best == nil || d.Percentage > best.Percentage {
			best = d
			continue
		}
		if d.Percentage == best.Percentage && bytes.Compare(d.ID[:], best.ID[:]) < 0 {
			best = d
		}
	}
	return best
}

// ResolveSelectedDiscount determines which discount a cart line should carry.
//
// The selector is nil when the caller made no explicit choice, NoDiscount
// when the caller explicitly wants none, or a discount id. autoPickBest is
// true only when a brand-new item is created; on increments the previous
// selection is preserved unless an explicit selector is passed.
func ResolveSelectedDiscount(product *domain.Product, selector *uuid.UUID, autoPickBest bool, on time.Time) (*domain.Discount, error) {
	if selector == nil {
		if autoPickBest {
			return BestActive(product, on), nil
		}
		return nil, nil
	}
	if *selector == NoDiscount {
		return nil, nil
	}
	for i := range product.Discounts {
		d := &product.Discounts[i]
		if d.ID == *selector && IsActive(d, on) {
			return d, nil
		}
	}
	return nil, ErrInvalidDiscount
}

// FindDiscount looks up a discount on the product by id without checking
// activity. Used by the projector to re-evaluate a stored selection.
func FindDiscount(product *domain.Product, id uuid.UUID) *domain.Discount {
	for i := range product.Discounts {
		if product.Discounts[i].ID == id {
			return &product.Discounts[i]
		}
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
