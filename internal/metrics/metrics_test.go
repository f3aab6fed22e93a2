package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMutation(t *testing.T) {
	m := New()
	m.Mutation("sale", nil)
	m.Mutation("sale", nil)
	m.Mutation("sale", errors.New("boom"))

	body := scrape(t, m)
	assert.Contains(t, body, `zaloga_mutations_total{op="sale",result="ok"} 2`)
	assert.Contains(t, body, `zaloga_mutations_total{op="sale",result="error"} 1`)
}

func TestHandler(t *testing.T) {
	m := New()
	m.CascadeDeletes.Inc()

	body := scrape(t, m)
	assert.Contains(t, body, "zaloga_cascade_deletes_total 1")
	assert.Contains(t, body, "go_goroutines")
}
