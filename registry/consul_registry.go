package registry

import (
	"context"
	"fmt"
	"net"
	"strconv"

	consulapi "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

type consulRegistry struct {
	client *consulapi.Client
	logger *zap.Logger
}

var _ ServiceRegistry = (*consulRegistry)(nil)

// NewConsulRegistry connects to the Consul agent at address and checks that
// it answers.
func NewConsulRegistry(address string, logger *zap.Logger) (ServiceRegistry, error) {
	cfg := consulapi.DefaultConfig()
	cfg.Address = address
	return newConsulRegistry(cfg, logger)
}

func newConsulRegistry(cfg *consulapi.Config, logger *zap.Logger) (*consulRegistry, error) {
	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}
	if _, err := client.Agent().NodeName(); err != nil {
		return nil, fmt.Errorf("cannot reach consul agent at %s: %w", cfg.Address, err)
	}
	logger.Info("connected to consul agent", zap.String("address", cfg.Address))
	return &consulRegistry{client: client, logger: logger.Named("consul")}, nil
}

func (r *consulRegistry) Register(inst Instance) error {
	reg := &consulapi.AgentServiceRegistration{
		ID:      inst.ID,
		Name:    inst.Name,
		Tags:    inst.Tags,
		Port:    inst.Port,
		Address: inst.Address,
		Meta:    inst.Meta,
		Checks:  inst.Checks,
	}
	if err := r.client.Agent().ServiceRegister(reg); err != nil {
		return fmt.Errorf("register service %q: %w", inst.ID, err)
	}
	r.logger.Info("registered service", zap.String("service_id", inst.ID), zap.String("address", inst.Address), zap.Int("port", inst.Port))
	return nil
}

func (r *consulRegistry) Deregister(id string) error {
	if err := r.client.Agent().ServiceDeregister(id); err != nil {
		return fmt.Errorf("deregister service %q: %w", id, err)
	}
	r.logger.Info("deregistered service", zap.String("service_id", id))
	return nil
}

func (r *consulRegistry) Discover(ctx context.Context, name, tag string) ([]string, error) {
	q := (&consulapi.QueryOptions{}).WithContext(ctx)
	entries, _, err := r.client.Health().Service(name, tag, true, q)
	if err != nil {
		return nil, fmt.Errorf("discover service %q: %w", name, err)
	}
	addrs := addresses(entries)
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoInstances, name)
	}
	r.logger.Debug("discovered instances", zap.String("service", name), zap.Strings("addresses", addrs))
	return addrs, nil
}

// addresses prefers the service address and falls back to the node's.
func addresses(entries []*consulapi.ServiceEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Service == nil {
			continue
		}
		host := e.Service.Address
		if host == "" && e.Node != nil {
			host = e.Node.Address
		}
		out = append(out, net.JoinHostPort(host, strconv.Itoa(e.Service.Port)))
	}
	return out
}

// HTTPCheck builds an HTTP health check against path on host:port.
func HTTPCheck(serviceID, host string, port int, path string) *consulapi.AgentServiceCheck {
	return &consulapi.AgentServiceCheck{
		CheckID:                        "check_" + serviceID + "_http",
		Name:                           "HTTP " + path,
		HTTP:                           "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + path,
		Method:                         "GET",
		Interval:                       "10s",
		Timeout:                        "2s",
		DeregisterCriticalServiceAfter: "1m",
	}
}

// GRPCCheck builds a gRPC health check; the server must serve grpc.health.v1.
func GRPCCheck(serviceID, host string, port int) *consulapi.AgentServiceCheck {
	return &consulapi.AgentServiceCheck{
		CheckID:                        "check_" + serviceID + "_grpc",
		Name:                           "gRPC health",
		GRPC:                           net.JoinHostPort(host, strconv.Itoa(port)),
		Interval:                       "10s",
		Timeout:                        "2s",
		DeregisterCriticalServiceAfter: "1m",
	}
}

// InstanceID derives a stable instance id from the service name and ports.
func InstanceID(name, host string, httpPort int) string {
	return fmt.Sprintf("%s-%s-%d", name, host, httpPort)
}
