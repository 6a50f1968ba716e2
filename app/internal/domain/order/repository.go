package order

import "context"

// Submitter places a finalized order.
type Submitter interface {
	Submit(ctx context.Context, s Submission) (*Placement, error)
}
