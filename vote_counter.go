package iris

import (
	"fmt"

	"github.com/kelindar/bitmap"
)

// VoteCounter tallies, per ID, how many voting bitmaps contained it.
// Counts are kept in unary: levels[i] holds every ID with more than i
// votes, so levels only ever shrink going up.
type VoteCounter struct {
	levels []bitmap.Bitmap
	carry  bitmap.Bitmap
	next   bitmap.Bitmap
}

func NewVoteCounter(maxVotes int) *VoteCounter {
	return &VoteCounter{
		levels: make([]bitmap.Bitmap, maxVotes),
	}
}

// Vote adds one vote to every member of in. IDs already at maxVotes
// stay there.
func (c *VoteCounter) Vote(in bitmap.Bitmap) {
	in.Clone(&c.carry)
	for i := range c.levels {
		if c.carry.Count() == 0 {
			return
		}
		// IDs already at this level climb to the next one.
		c.levels[i].Clone(&c.next)
		c.next.And(c.carry)
		c.levels[i].Or(c.carry)
		c.carry, c.next = c.next, c.carry
	}
}

// Votes reports how many votes x has received.
func (c *VoteCounter) Votes(x uint32) int {
	for i := range c.levels {
		if !c.levels[i].Contains(x) {
			return i
		}
	}
	return len(c.levels)
}

// Leaders returns the IDs at the highest vote level that still holds at
// least k of them, or every voted ID when no level does. The result may
// hold more than k IDs and aliases the counter.
func (c *VoteCounter) Leaders(k int) bitmap.Bitmap {
	for i := len(c.levels) - 1; i > 0; i-- {
		if c.levels[i].Count() >= k {
			return c.levels[i]
		}
	}
	if len(c.levels) == 0 {
		return nil
	}
	return c.levels[0]
}

func (c *VoteCounter) histogram() []int {
	out := make([]int, 0, len(c.levels))
	for _, l := range c.levels {
		out = append(out, l.Count())
	}
	return out
}

func (c *VoteCounter) String() string {
	return fmt.Sprintf("votes%v", c.histogram())
}
