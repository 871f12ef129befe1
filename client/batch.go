package client

import (
	"context"

	"golang.org/x/sync/errgroup"

	moderation "github.com/heibot/moderation"
)

// DefaultBatchConcurrency bounds concurrent moderations in a batch.
const DefaultBatchConcurrency = 4

// BatchItem represents a single item in a batch.
type BatchItem struct {
	ID      string // Caller's ID for this item (post or comment ID)
	Request moderation.Request
}

// ModerateBatchInput is the input for batch moderation.
type ModerateBatchInput struct {
	Items []BatchItem

	// Concurrency bounds in-flight moderations. Default: 4
	Concurrency int
}

// ModerateBatchResult is the result of batch moderation.
type ModerateBatchResult struct {
	// Results maps item ID to its result.
	Results map[string]moderation.Result

	ApprovedCount int
	RejectedCount int

	// JudgedCount is the number of items escalated to the safety judge.
	JudgedCount int
}

// ModerateBatch moderates independent items concurrently. Items are
// moderated exactly as by Moderate; duplicate IDs keep the last result.
func (c *Client) ModerateBatch(ctx context.Context, input ModerateBatchInput) (*ModerateBatchResult, error) {
	if len(input.Items) == 0 {
		return nil, moderation.ErrNoItems
	}
	if input.Concurrency <= 0 {
		input.Concurrency = DefaultBatchConcurrency
	}

	results := make([]moderation.Result, len(input.Items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(input.Concurrency)
	for i, item := range input.Items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.Moderate(gctx, item.Request)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &ModerateBatchResult{Results: make(map[string]moderation.Result, len(input.Items))}
	for i, item := range input.Items {
		res := results[i]
		out.Results[item.ID] = res
		if res.Approved {
			out.ApprovedCount++
		} else {
			out.RejectedCount++
		}
		if res.UsedSafetyJudge {
			out.JudgedCount++
		}
	}
	return out, nil
}
