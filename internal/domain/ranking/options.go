package ranking

type config struct {
	bigM int64
	rows []int
}

// Option applies a configuration option to Build.
type Option func(*config)

// WithBigM replaces the derived comparison constant. A value smaller than
// BigM silently cuts off valid standings; it exists to test that boundary.
func WithBigM(m int64) Option {
	return func(c *config) {
		if m > 0 {
			c.bigM = m
		}
	}
}

// WithRows restricts comparison literals and ranks to the given competitors.
// Totals are still built for everybody.
func WithRows(rows ...int) Option {
	return func(c *config) {
		c.rows = append(c.rows, rows...)
	}
}
