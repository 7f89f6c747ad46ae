package salt

import (
	"context"
	"time"
)

// Cache holds the most recently listed bills. Every refresh replaces the
// content, bills are never merged across listings.
type Cache struct {
	bills Bills
}

func (c *Cache) Replace(bills Bills) {
	c.bills = append(Bills(nil), bills...)
}

// Bills returns a copy of the cached bills.
func (c *Cache) Bills() Bills {
	return append(Bills(nil), c.bills...)
}

func (c *Cache) Len() int {
	return len(c.bills)
}

func (c *Cache) ByMonth(year int, month time.Month) (Bill, bool) {
	return c.bills.ByMonth(year, month)
}

// Refresh lists the bills and stores them in c.
func (s Service) Refresh(ctx context.Context, c *Cache) (Bills, error) {
	bills, err := s.Bills(ctx)
	if err != nil {
		return nil, err
	}
	c.Replace(bills)
	return bills, nil
}
