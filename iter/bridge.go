package iter

import "github.com/go-foundations/forkjoin"

// sequentialThreshold is the cost below which Bridge stops splitting
// and folds a leaf sequentially. It mirrors a cost-derived threshold
// without hard-coding a particular Cost implementation's unit.
const sequentialThreshold = 1 << 10

// Bridge drives an indexed Producer/Consumer pair to completion,
// recursing via forkjoin.Join whenever the producer's Cost exceeds
// the sequential threshold and the consumer has not already
// accumulated enough (Full). Indexed producers preserve input order:
// Bridge always recurses left-then-right and reduces in that order.
func Bridge[T any, Result any](p Producer[T], c Consumer[T, Result]) Result {
	if c.Full() {
		return c.IntoFolder().Complete()
	}

	length := p.Len()
	if length <= 1 || p.Cost(length) <= sequentialThreshold {
		return consumeSequentially(p, c)
	}

	mid := length / 2
	leftP, rightP := p.SplitAt(mid)
	leftC, rightC, reducer := c.SplitAt(mid)

	leftResult, rightResult := forkjoin.Join(
		func() Result { return Bridge(leftP, leftC) },
		func() Result { return Bridge(rightP, rightC) },
	)
	return reducer.Reduce(leftResult, rightResult)
}

// BridgeUnindexed drives a Producer against an UnindexedConsumer. It
// does not promise the output reflects input order: the consumer is
// split with SplitOff, which carries no index, so the two halves are
// not told which part of the input they cover. Results are still
// combined as Reduce(left, right).
func BridgeUnindexed[T any, Result any](p Producer[T], c UnindexedConsumer[T, Result]) Result {
	if c.Full() {
		return c.IntoFolder().Complete()
	}

	length := p.Len()
	if length <= 1 || p.Cost(length) <= sequentialThreshold {
		return consumeSequentiallyUnindexed(p, c)
	}

	mid := length / 2
	leftP, rightP := p.SplitAt(mid)
	leftC, rightC := c.SplitOff()
	reducer := c.ToReducer()

	leftResult, rightResult := forkjoin.Join(
		func() Result { return BridgeUnindexed(leftP, leftC) },
		func() Result { return BridgeUnindexed(rightP, rightC) },
	)
	return reducer.Reduce(leftResult, rightResult)
}

func consumeSequentially[T any, Result any](p Producer[T], c Consumer[T, Result]) Result {
	folder := c.IntoFolder().ConsumeSlice(p.IntoSlice())
	return folder.Complete()
}

func consumeSequentiallyUnindexed[T any, Result any](p Producer[T], c UnindexedConsumer[T, Result]) Result {
	folder := c.IntoFolder().ConsumeSlice(p.IntoSlice())
	return folder.Complete()
}
