package forkjoin

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"
)

type JoinTestSuite struct {
	suite.Suite
}

func TestJoinTestSuite(t *testing.T) {
	suite.Run(t, new(JoinTestSuite))
}

// TestJoinReturnsBothResults covers scenario S2.
func (ts *JoinTestSuite) TestJoinReturnsBothResults() {
	a, b := Join(
		func() int { return 1 + 2 },
		func() int { return 10 * 10 },
	)
	ts.Equal(3, a)
	ts.Equal(100, b)
}

func (ts *JoinTestSuite) TestJoinFromForeignGoroutine() {
	// No worker owns this goroutine; both sides must still be
	// dispatched and observed via the injection queue / latch.
	a, b := Join(
		func() string { return "left" },
		func() string { return "right" },
	)
	ts.Equal("left", a)
	ts.Equal("right", b)
}

// TestJoinLeftPriority covers scenario S6 and testable property 4:
// when both sides panic, the left payload wins.
func (ts *JoinTestSuite) TestJoinLeftPriority() {
	defer func() {
		r := recover()
		ts.Require().NotNil(r)
		ts.Equal("L", r)
	}()

	Join(
		func() int { panic("L") },
		func() int { panic("R") },
	)
	ts.Fail("Join should have panicked")
}

func (ts *JoinTestSuite) TestJoinRightPanicOnlyStillPropagates() {
	defer func() {
		r := recover()
		ts.Require().NotNil(r)
		ts.Equal("boom", r)
	}()

	Join(
		func() int { return 42 },
		func() int { panic("boom") },
	)
	ts.Fail("Join should have panicked")
}

func (ts *JoinTestSuite) TestNestedJoinRecursion() {
	var sum func(lo, hi int) int
	sum = func(lo, hi int) int {
		if hi-lo <= 1 {
			if lo < hi {
				return lo
			}
			return 0
		}
		mid := (lo + hi) / 2
		a, b := Join(
			func() int { return sum(lo, mid) },
			func() int { return sum(mid, hi) },
		)
		return a + b
	}

	got := sum(0, 1000)
	ts.Equal(999*1000/2, got)
}

func (ts *JoinTestSuite) TestJoinDeepRecursionRunsEveryLeaf() {
	var counter int64
	var rec func(depth int)
	rec = func(depth int) {
		if depth == 0 {
			atomic.AddInt64(&counter, 1)
			return
		}
		Join(
			func() struct{} { rec(depth - 1); return struct{}{} },
			func() struct{} { rec(depth - 1); return struct{}{} },
		)
	}

	rec(12)
	ts.Equal(int64(1<<12), atomic.LoadInt64(&counter))
}
