// internal/writer/metrics_test.go
package writer

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/saj-modbus/internal/status"
)

func TestMetricsWriter_Fields(t *testing.T) {
	m := NewMetricsWriter("garage")

	s := normalSnapshot()
	s.Fields[status.KeyDateTime] = time.Unix(1714550400, 0)
	require.NoError(t, m.WriteStatus(s))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.up))
	assert.Equal(t, 1234.0, testutil.ToFloat64(m.fields.WithLabelValues(status.KeyPower)))
	assert.Equal(t, 10567.8, testutil.ToFloat64(m.fields.WithLabelValues(status.KeyTotalEnergy)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fields.WithLabelValues(status.KeyPowerOnOff)))
	assert.Equal(t, 1714550400.0, testutil.ToFloat64(m.clock))

	// identity goes to saj_info, not saj_field
	assert.Equal(t, 1, testutil.CollectAndCount(m.info))
	// power, mode, totalenergy, poweronoff
	assert.Equal(t, 4, testutil.CollectAndCount(m.fields))
}

func TestMetricsWriter_UntrustedCountersFrozen(t *testing.T) {
	m := NewMetricsWriter("garage")
	require.NoError(t, m.WriteStatus(normalSnapshot()))

	s := normalSnapshot()
	s.Fields[status.KeyMode] = 4 // fault
	s.Fields[status.KeyTotalEnergy] = 0.0
	require.NoError(t, m.WriteStatus(s))

	assert.Equal(t, 10567.8, testutil.ToFloat64(m.fields.WithLabelValues(status.KeyTotalEnergy)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.fields.WithLabelValues(status.KeyMode)))
}

func TestMetricsWriter_UntrustedCountersWithoutHistory(t *testing.T) {
	m := NewMetricsWriter("garage")

	s := normalSnapshot()
	s.Fields = status.Degrade(s.Fields)
	require.NoError(t, m.WriteStatus(s))

	// power, mode, poweronoff; no counter before a trusted tick
	assert.Equal(t, 3, testutil.CollectAndCount(m.fields))
}

func TestMetricsWriter_FailuresCountedPerTick(t *testing.T) {
	m := NewMetricsWriter("garage")

	s := normalSnapshot()
	s.Health = status.HealthError
	require.NoError(t, m.WriteStatus(s))
	require.NoError(t, m.WriteStatus(s)) // republish of the same tick

	s.At = s.At.Add(time.Minute)
	require.NoError(t, m.WriteStatus(s))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.failures))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.up))
}

func TestMetricsWriter_Handler(t *testing.T) {
	m := NewMetricsWriter("garage")
	require.NoError(t, m.WriteStatus(normalSnapshot()))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `saj_up{inverter="garage"} 1`))
	assert.True(t, strings.Contains(body, `saj_field{field="power",inverter="garage"} 1234`))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
