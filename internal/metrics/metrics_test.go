package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"telegram-health-assistant/internal/models"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(providerFetches.WithLabelValues("whoop", "expired"))
	RecordFetch(models.ProviderWhoop, "expired")
	assert.Equal(t, before+1, testutil.ToFloat64(providerFetches.WithLabelValues("whoop", "expired")))

	before = testutil.ToFloat64(snapshotCycleState.WithLabelValues("estimated"))
	RecordSnapshot(models.CycleEstimated)
	assert.Equal(t, before+1, testutil.ToFloat64(snapshotCycleState.WithLabelValues("estimated")))

	before = testutil.ToFloat64(credentialsExpired.WithLabelValues("fatsecret"))
	RecordCredentialExpired(models.ProviderFatSecret)
	assert.Equal(t, before+1, testutil.ToFloat64(credentialsExpired.WithLabelValues("fatsecret")))
}
