package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveMutation(t *testing.T) {
	success := testutil.ToFloat64(MutationsTotal.WithLabelValues("test_action", "success"))
	failure := testutil.ToFloat64(MutationsTotal.WithLabelValues("test_action", "error"))

	ObserveMutation("test_action", time.Now(), nil)
	ObserveMutation("test_action", time.Now(), errors.New("rolled back"))
	ObserveMutation("test_action", time.Now(), nil)

	assert.Equal(t, success+2, testutil.ToFloat64(MutationsTotal.WithLabelValues("test_action", "success")))
	assert.Equal(t, failure+1, testutil.ToFloat64(MutationsTotal.WithLabelValues("test_action", "error")))
}

func TestObserveTier(t *testing.T) {
	results := testutil.ToFloat64(MatchTierResults.WithLabelValues("test_tier"))
	errs := testutil.ToFloat64(MatchTierErrors.WithLabelValues("test_tier"))

	ObserveTier("test_tier", time.Now(), 3, nil)
	ObserveTier("test_tier", time.Now(), 5, errors.New("timeout"))

	assert.Equal(t, results+3, testutil.ToFloat64(MatchTierResults.WithLabelValues("test_tier")), "failed runs add no results")
	assert.Equal(t, errs+1, testutil.ToFloat64(MatchTierErrors.WithLabelValues("test_tier")))
}
