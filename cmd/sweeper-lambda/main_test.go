package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/booking-engine/internal/config"
	"github.com/wolfman30/booking-engine/pkg/logging"
)

type stubSweeper struct {
	n   int
	err error
}

func (s stubSweeper) Run(context.Context) (int, error) { return s.n, s.err }

func TestHandlerReportsCompleted(t *testing.T) {
	h := newHandler(stubSweeper{n: 3}, logging.New("error"))
	res, err := h(context.Background(), events.CloudWatchEvent{ID: "evt-1"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Completed)
}

func TestHandlerSurfacesFailure(t *testing.T) {
	h := newHandler(stubSweeper{n: 1, err: errors.New("db down")}, logging.New("error"))
	res, err := h(context.Background(), events.CloudWatchEvent{ID: "evt-2"})
	assert.Error(t, err)
	assert.Equal(t, 1, res.Completed)
}

func TestBuildSweeperRequiresDatabase(t *testing.T) {
	_, _, err := buildSweeper(context.Background(), &appconfig.Config{}, logging.New("error"))
	assert.Error(t, err)
}
