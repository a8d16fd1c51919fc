package discovery

import (
	"fmt"
	"net"
	"strconv"

	"github.com/hashicorp/consul/api"
	"github.com/rs/zerolog"
)

// Registration describes a service instance announced to Consul.
type Registration struct {
	Name     string
	Host     string
	HTTPPort int
	GRPCPort int
	Tags     []string
}

// ID is the instance ID used for registration and deregistration.
func (r Registration) ID() string {
	return fmt.Sprintf("%s-%s-%d", r.Name, r.Host, r.HTTPPort)
}

// Registry registers service instances with a Consul agent.
type Registry struct {
	client *api.Client
	logger *zerolog.Logger
}

func NewRegistry(addr string, logger *zerolog.Logger) (*Registry, error) {
	cfg := api.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	return &Registry{client: client, logger: logger}, nil
}

// Register announces reg with a gRPC health check on its gRPC port.
func (r *Registry) Register(reg Registration) error {
	service := &api.AgentServiceRegistration{
		ID:      reg.ID(),
		Name:    reg.Name,
		Address: reg.Host,
		Port:    reg.HTTPPort,
		Tags:    reg.Tags,
		Meta:    map[string]string{"grpc_port": strconv.Itoa(reg.GRPCPort)},
	}
	if reg.GRPCPort > 0 {
		service.Check = &api.AgentServiceCheck{
			GRPC:                           net.JoinHostPort(reg.Host, strconv.Itoa(reg.GRPCPort)),
			Interval:                       "10s",
			Timeout:                        "3s",
			DeregisterCriticalServiceAfter: "1m",
		}
	}

	if err := r.client.Agent().ServiceRegister(service); err != nil {
		return fmt.Errorf("failed to register %s with consul: %w", reg.Name, err)
	}

	r.logger.Info().Str("service_id", service.ID).Msg("registered with consul")
	return nil
}

// Deregister removes the instance registered under serviceID.
func (r *Registry) Deregister(serviceID string) error {
	if err := r.client.Agent().ServiceDeregister(serviceID); err != nil {
		return fmt.Errorf("failed to deregister %s from consul: %w", serviceID, err)
	}

	r.logger.Info().Str("service_id", serviceID).Msg("deregistered from consul")
	return nil
}
