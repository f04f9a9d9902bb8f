package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterCountsByRouteTemplate(t *testing.T) {
	m := New("milorg")

	ws := new(restful.WebService)
	ws.Path("/api/items")
	ws.Route(ws.GET("/{id}").To(func(req *restful.Request, resp *restful.Response) {
		resp.WriteHeader(http.StatusNoContent)
	}))
	c := restful.NewContainer()
	c.Filter(m.Filter)
	c.Add(ws)

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/"+id, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/items/{id}", "204")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))
}

func TestHandlerExposesSessionCounters(t *testing.T) {
	m := New("milorg")
	m.ObserveLogin(ResultSuccess)
	m.ObserveVerification(ResultFailure, "TOKEN_EXPIRED")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `milorg_login_attempts_total{result="success"} 1`))
	assert.True(t, strings.Contains(body, `milorg_token_verifications_total{code="TOKEN_EXPIRED",result="failure"} 1`))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveLogin(ResultFailure)
		m.ObserveVerification(ResultSuccess, "")
	})
}
