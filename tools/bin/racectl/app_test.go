package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paddock/raceline/ingester/ingestclient"
	"github.com/paddock/raceline/lib/collector"
	"github.com/paddock/raceline/lib/persistedretry"
	"github.com/paddock/raceline/lib/poller"
	"github.com/paddock/raceline/mocks/ingester/ingestclient"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, c ingestclient.Client, args ...string) (string, error) {
	a := newApp()
	cmd, err := a.Parse(args)
	require.NoError(t, err)

	var out bytes.Buffer
	err = a.execute(context.Background(), c, cmd, &out)
	return out.String(), err
}

func TestFailuresList(t *testing.T) {
	require := require.New(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mockingestclient.NewMockClient(ctrl)

	client.EXPECT().ListFailures(gomock.Any(), persistedretry.Query{
		Status:  persistedretry.StatusPending,
		JobType: persistedretry.JobOddsPoll,
		Limit:   5,
	}).Return([]*persistedretry.Failure{{ID: 7, Status: persistedretry.StatusPending}}, nil)

	out, err := runApp(t, client,
		"failures", "list", "--status=pending", "--job-type=odds_poll", "-n", "5")
	require.NoError(err)
	require.Contains(out, `"id": 7`)
	require.Contains(out, `"status": "pending"`)
}

func TestFailuresListBadStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	_, err := runApp(t, mockingestclient.NewMockClient(ctrl),
		"failures", "list", "--status=lost")
	require.Error(t, err)
}

func TestFailuresRetry(t *testing.T) {
	require := require.New(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mockingestclient.NewMockClient(ctrl)

	client.EXPECT().RetryFailure(gomock.Any(), int64(3)).Return(nil, ingestclient.ErrNotRetryable)

	_, err := runApp(t, client, "failures", "retry", "3")
	require.Equal(ingestclient.ErrNotRetryable, err)
}

func TestTriggerPolls(t *testing.T) {
	tests := []struct {
		command string
		job     ingestclient.Job
	}{
		{"entries", ingestclient.JobEntries},
		{"results", ingestclient.JobResults},
		{"odds", ingestclient.JobOdds},
	}
	for _, test := range tests {
		t.Run(test.command, func(t *testing.T) {
			require := require.New(t)

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			client := mockingestclient.NewMockClient(ctrl)

			ids := []string{"horse-1-1-20241210", "horse-1-2-20241210"}
			client.EXPECT().PollRaces(gomock.Any(), test.job, ids).Return(poller.Result{Collected: 2}, nil)

			out, err := runApp(t, client, "trigger", test.command, ids[0], ids[1])
			require.NoError(err)
			require.Contains(out, `"collected": 2`)
		})
	}
}

func TestTriggerSchedule(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mockingestclient.NewMockClient(ctrl)

	client.EXPECT().PollSchedule(
		gomock.Any(), "20241210", []string{"horse", "boat"}).Return(poller.Result{Collected: 12}, nil)

	_, err := runApp(t, client,
		"trigger", "schedule", "--date=20241210", "--type=horse", "--type=boat")
	require.NoError(t, err)
}

func TestTriggerRecovery(t *testing.T) {
	require := require.New(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mockingestclient.NewMockClient(ctrl)

	client.EXPECT().ProcessFailures(gomock.Any(), 0).Return(
		persistedretry.Result{Processed: 2, Recovered: 1, Failed: 1}, nil)

	out, err := runApp(t, client, "trigger", "recovery")
	require.NoError(err)
	require.Contains(out, `"recovered": 1`)
}

func TestOddsSince(t *testing.T) {
	require := require.New(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mockingestclient.NewMockClient(ctrl)

	since := time.Date(2024, 12, 10, 1, 0, 0, 0, time.UTC)
	client.EXPECT().Odds(gomock.Any(), "horse-1-1-20241210", since).Return(nil, nil)

	_, err := runApp(t, client, "odds", "horse-1-1-20241210", "--since=2024-12-10T01:00:00Z")
	require.NoError(err)

	_, err = runApp(t, client, "odds", "horse-1-1-20241210", "--since=yesterday")
	require.Error(err)
}

func TestTriggerTickError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mockingestclient.NewMockClient(ctrl)

	client.EXPECT().Tick(gomock.Any()).Return(collector.TickResult{}, errors.New("some error"))

	_, err := runApp(t, client, "trigger", "tick")
	require.Error(t, err)
}
