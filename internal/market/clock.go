package market

// Clock is the simulation step counter plus the monotonic placement
// sequence shared by the three books. Steps drive fee periods; the sequence
// stamps orders so price-time priority has a total order even within a step.
type Clock struct {
	step uint64
	seq  uint64
}

func NewClock() *Clock {
	return &Clock{step: 1}
}

func (c *Clock) Step() uint64 {
	return c.step
}

func (c *Clock) NextPostTime() uint64 {
	c.seq++
	return c.seq
}

// Advance moves to the next step.
func (c *Clock) Advance() {
	c.step++
}
