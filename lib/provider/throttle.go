package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/paddock/raceline/core"

	"golang.org/x/time/rate"
)

type throttledClient struct {
	Client
	limiter *rate.Limiter
}

// throttle wraps client with a request rate limit.
func throttle(client Client, limiter *rate.Limiter) *throttledClient {
	return &throttledClient{client, limiter}
}

func (c *throttledClient) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

func (c *throttledClient) FetchSchedules(
	ctx context.Context, raceType core.RaceType, date time.Time) ([]RawScheduleItem, error) {

	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.Client.FetchSchedules(ctx, raceType, date)
}

func (c *throttledClient) FetchEntries(ctx context.Context, id core.RaceID) ([]RawEntryItem, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.Client.FetchEntries(ctx, id)
}

func (c *throttledClient) FetchOdds(ctx context.Context, id core.RaceID) ([]RawOddsItem, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.Client.FetchOdds(ctx, id)
}

func (c *throttledClient) FetchResults(ctx context.Context, id core.RaceID) ([]RawResultItem, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.Client.FetchResults(ctx, id)
}
