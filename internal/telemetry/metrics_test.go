package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetMetrics(t *testing.T) {
	m := GetMetrics()
	require.Same(t, m, GetMetrics())

	require.NotNil(t, m.BuildsTotal)
	require.NotNil(t, m.BuildErrorsTotal)
	require.NotNil(t, m.BuildDuration)
	require.NotNil(t, m.OutputBytes)
	require.NotNil(t, m.RequestsTotal)

	// recording against the default no-op provider never panics
	ctx := context.Background()
	m.BuildsTotal.Add(ctx, 1)
	m.BuildDuration.Record(ctx, 12.5)
}
