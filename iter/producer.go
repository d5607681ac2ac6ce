// Package iter implements the split/cost-driven producer-consumer
// bridge that lowers bulk parallel-iterator operations into recursive
// forkjoin.Join calls. It defines only the traits and
// the bridge driver; the public map/filter/reduce/collect adapter
// surface and any slice/vector producer adapters are out of scope
// and are not provided here as public API.
package iter

// Producer is a splittable source of items of type T. SplitAt divides
// the producer at logical index i into two producers covering
// [0, i) and [i, len) of the original sequence; Cost estimates the
// work of processing a producer of the given length, and is what the
// bridge driver compares against its sequential-execution threshold;
// IntoSlice materializes the producer's remaining items for sequential
// consumption once the driver decides not to split further.
type Producer[T any] interface {
	// SplitAt splits the producer at index i, returning the left
	// producer covering indices [0, i) and the right producer
	// covering [i, len).
	SplitAt(i int) (left, right Producer[T])

	// Cost estimates the work of consuming len items from this
	// producer, for the bridge driver's split-vs-sequential decision.
	Cost(len int) float64

	// Len reports the number of items remaining in the producer.
	Len() int

	// IntoSlice returns the producer's remaining items in order, for
	// sequential consumption.
	IntoSlice() []T
}

// Reversible is implemented by producers that can hand back a dual
// producer iterating the same elements in the opposite order.
type Reversible[T any] interface {
	Producer[T]
	// Rev returns a producer iterating this producer's elements in
	// reverse. The returned producer's own SplitAt operates in its
	// own (reversed) index space: splitting a reversed producer at
	// logical index i yields a left half holding the *last* i items
	// of the underlying sequence (see DESIGN.md for the reasoning).
	Rev() Reversible[T]
}

// ProducerCallback lets an indexed parallel iterator hand a concrete
// Producer to a consumer of its own choosing without revealing the
// producer's own type parameter to its caller.
type ProducerCallback[T any, Out any] interface {
	Callback(p Producer[T]) Out
}

// sliceProducer is an internal bridge test fixture only: it is not
// exported, since a public slice/vector producer adapter surface
// remains out of scope. It demonstrates the Producer/Reversible
// contract over a plain slice.
type sliceProducer[T any] struct {
	data []T
}

func (p sliceProducer[T]) SplitAt(i int) (Producer[T], Producer[T]) {
	return sliceProducer[T]{data: p.data[:i]}, sliceProducer[T]{data: p.data[i:]}
}

func (p sliceProducer[T]) Cost(len int) float64 { return float64(len) }
func (p sliceProducer[T]) Len() int             { return len(p.data) }
func (p sliceProducer[T]) IntoSlice() []T       { return p.data }

func (p sliceProducer[T]) Rev() Reversible[T] {
	return sliceRevProducer[T]{data: p.data}
}

// sliceRevProducer iterates the same backing slice in reverse. Its
// SplitAt implements the corrected reversed-split semantics: splitting
// at logical index i yields a left half that is the *last* i elements
// of the underlying slice, reversed.
type sliceRevProducer[T any] struct {
	data []T
}

func (p sliceRevProducer[T]) SplitAt(i int) (Producer[T], Producer[T]) {
	n := len(p.data)
	// Logical index i from the reversed view corresponds to the
	// underlying slice boundary at n-i: the reversed producer's first
	// i elements are the underlying producer's *last* i elements.
	boundary := n - i
	leftUnderlying := p.data[boundary:] // last i elements, underlying order
	rightUnderlying := p.data[:boundary]
	return sliceRevProducer[T]{data: leftUnderlying}, sliceRevProducer[T]{data: rightUnderlying}
}

func (p sliceRevProducer[T]) Cost(len int) float64 { return float64(len) }
func (p sliceRevProducer[T]) Len() int             { return len(p.data) }

func (p sliceRevProducer[T]) IntoSlice() []T {
	out := make([]T, len(p.data))
	for i, v := range p.data {
		out[len(p.data)-1-i] = v
	}
	return out
}

func (p sliceRevProducer[T]) Rev() Reversible[T] {
	return sliceProducer[T]{data: p.data}
}
