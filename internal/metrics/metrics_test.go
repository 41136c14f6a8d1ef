package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(messagesSent.WithLabelValues("state"))
	MessageSent("state")
	MessageSent("state")
	require.Equal(t, before+2, testutil.ToFloat64(messagesSent.WithLabelValues("state")))

	before = testutil.ToFloat64(commandsReceived.WithLabelValues("no_data", OutcomeStale))
	CommandReceived("no_data", OutcomeStale)
	require.Equal(t, before+1, testutil.ToFloat64(commandsReceived.WithLabelValues("no_data", OutcomeStale)))
}

func TestGauges(t *testing.T) {
	SetEntries(12)
	require.Equal(t, 12.0, testutil.ToFloat64(entries.WithLabelValues()))
	SetQueueLength(3)
	require.Equal(t, 3.0, testutil.ToFloat64(queueLength.WithLabelValues()))
}
