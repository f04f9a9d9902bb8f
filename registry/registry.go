// Package registry announces the admin API to Consul and resolves peers.
package registry

import (
	"context"
	"errors"

	consulapi "github.com/hashicorp/consul/api"
)

// ErrNoInstances is returned by Discover when no healthy instance is known.
var ErrNoInstances = errors.New("no healthy instances")

// Instance describes one running copy of this process.
type Instance struct {
	ID      string
	Name    string
	Address string
	Port    int
	Tags    []string
	Meta    map[string]string
	Checks  consulapi.AgentServiceChecks
}

// ServiceRegistry registers this process and discovers others.
type ServiceRegistry interface {
	Register(inst Instance) error
	Deregister(id string) error
	// Discover returns "host:port" addresses of healthy instances of name.
	Discover(ctx context.Context, name, tag string) ([]string, error)
}
