package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	consulapi "github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAgent struct {
	mu         sync.Mutex
	registered []consulapi.AgentServiceRegistration
	entries    []*consulapi.ServiceEntry
}

func (f *fakeAgent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Consul-Index", "1")
	w.Header().Set("X-Consul-LastContact", "0")
	w.Header().Set("X-Consul-KnownLeader", "true")
	switch {
	case r.URL.Path == "/v1/agent/self":
		_ = json.NewEncoder(w).Encode(map[string]any{"Config": map[string]any{"NodeName": "node-1"}})
	case r.URL.Path == "/v1/agent/service/register":
		var reg consulapi.AgentServiceRegistration
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &reg)
		f.mu.Lock()
		f.registered = append(f.registered, reg)
		f.mu.Unlock()
	case strings.HasPrefix(r.URL.Path, "/v1/agent/service/deregister/"):
	case strings.HasPrefix(r.URL.Path, "/v1/health/service/"):
		_ = json.NewEncoder(w).Encode(f.entries)
	default:
		http.NotFound(w, r)
	}
}

func newTestRegistry(t *testing.T, agent *fakeAgent) *consulRegistry {
	t.Helper()
	srv := httptest.NewServer(agent)
	t.Cleanup(srv.Close)

	cfg := consulapi.DefaultConfig()
	cfg.Address = strings.TrimPrefix(srv.URL, "http://")
	r, err := newConsulRegistry(cfg, zap.NewNop())
	require.NoError(t, err)
	return r
}

func TestRegisterSendsInstance(t *testing.T) {
	agent := &fakeAgent{}
	r := newTestRegistry(t, agent)

	id := InstanceID("milorg-admin", "10.0.0.5", 8080)
	err := r.Register(Instance{
		ID:      id,
		Name:    "milorg-admin",
		Address: "10.0.0.5",
		Port:    8080,
		Tags:    []string{"http"},
		Checks:  consulapi.AgentServiceChecks{HTTPCheck(id, "10.0.0.5", 8080, "/healthz")},
	})
	require.NoError(t, err)

	agent.mu.Lock()
	defer agent.mu.Unlock()
	require.Len(t, agent.registered, 1)
	got := agent.registered[0]
	assert.Equal(t, "milorg-admin-10.0.0.5-8080", got.ID)
	assert.Equal(t, 8080, got.Port)
	require.Len(t, got.Checks, 1)
	assert.Equal(t, "http://10.0.0.5:8080/healthz", got.Checks[0].HTTP)

	assert.NoError(t, r.Deregister(id))
}

func TestDiscoverFallsBackToNodeAddress(t *testing.T) {
	agent := &fakeAgent{entries: []*consulapi.ServiceEntry{
		{Node: &consulapi.Node{Address: "10.0.0.1"}, Service: &consulapi.AgentService{Port: 8080}},
		{Node: &consulapi.Node{Address: "10.0.0.1"}, Service: &consulapi.AgentService{Address: "10.0.0.2", Port: 8081}},
	}}
	r := newTestRegistry(t, agent)

	addrs, err := r.Discover(context.Background(), "milorg-admin", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1:8080", "10.0.0.2:8081"}, addrs)
}

func TestDiscoverNoInstances(t *testing.T) {
	r := newTestRegistry(t, &fakeAgent{})

	_, err := r.Discover(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrNoInstances)
}
