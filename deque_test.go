package forkjoin

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

type fakeJob struct {
	id int
}

func (j *fakeJob) execute(mode Mode) {}

type DequeTestSuite struct {
	suite.Suite
}

func TestDequeTestSuite(t *testing.T) {
	suite.Run(t, new(DequeTestSuite))
}

func (ts *DequeTestSuite) TestPushPopLIFO() {
	d := newDeque(4)
	d.push(&fakeJob{id: 1})
	d.push(&fakeJob{id: 2})
	d.push(&fakeJob{id: 3})

	got, ok := d.pop()
	ts.True(ok)
	ts.Equal(3, got.(*fakeJob).id)

	got, ok = d.pop()
	ts.True(ok)
	ts.Equal(2, got.(*fakeJob).id)
}

func (ts *DequeTestSuite) TestPopEmpty() {
	d := newDeque(4)
	_, ok := d.pop()
	ts.False(ok)
}

func (ts *DequeTestSuite) TestStealFIFO() {
	d := newDeque(4)
	d.push(&fakeJob{id: 1})
	d.push(&fakeJob{id: 2})
	d.push(&fakeJob{id: 3})

	got, ok := d.steal()
	ts.True(ok)
	ts.Equal(1, got.(*fakeJob).id)
}

func (ts *DequeTestSuite) TestStealEmpty() {
	d := newDeque(4)
	_, ok := d.steal()
	ts.False(ok)
}

func (ts *DequeTestSuite) TestGrowPreservesOrder() {
	d := newDeque(2)
	for i := 0; i < 10; i++ {
		d.push(&fakeJob{id: i})
	}
	ts.Equal(10, d.size())

	for i := 0; i < 10; i++ {
		got, ok := d.steal()
		ts.True(ok)
		ts.Equal(i, got.(*fakeJob).id)
	}
	_, ok := d.steal()
	ts.False(ok)
}

func (ts *DequeTestSuite) TestLastElementRaceOnlyOneWinner() {
	// Repeat to stress the CAS race on the single remaining element.
	for iter := 0; iter < 200; iter++ {
		d := newDeque(4)
		d.push(&fakeJob{id: 1})

		var wg sync.WaitGroup
		results := make([]bool, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, ok := d.pop()
			results[0] = ok
		}()
		go func() {
			defer wg.Done()
			_, ok := d.steal()
			results[1] = ok
		}()
		wg.Wait()

		winners := 0
		if results[0] {
			winners++
		}
		if results[1] {
			winners++
		}
		ts.Equal(1, winners, "exactly one of pop/steal must win the race for the last element")
	}
}

func (ts *DequeTestSuite) TestConcurrentStealersAtMostOneWinsPerSlot() {
	d := newDeque(8)
	const n = 50
	for i := 0; i < n; i++ {
		d.push(&fakeJob{id: i})
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[int]int{}

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, ok := d.steal()
				if !ok {
					if d.isEmpty() {
						return
					}
					continue
				}
				mu.Lock()
				seen[job.(*fakeJob).id]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	ts.Len(seen, n)
	for id, count := range seen {
		ts.Equal(1, count, "job %d stolen more than once", id)
	}
}
