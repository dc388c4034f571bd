package provider

import (
	"log/slog"

	"petmily/internal/platform/config"
	"petmily/pkg/derrors"
)

// Registry resolves a Gateway by provider. It replaces name-based dispatch:
// construction wires one gateway per configured provider and lookups are
// the only way services reach them.
type Registry struct {
	gateways map[Provider]Gateway
}

// NewRegistry builds the gateway registry from immutable configuration.
func NewRegistry(cfg config.Config, logger *slog.Logger) *Registry {
	r := &Registry{gateways: make(map[Provider]Gateway)}
	r.register(NewKakaoGateway(cfg.Kakao, logger))
	r.register(NewNaverGateway(cfg.Naver, logger))
	r.register(NewGoogleGateway(cfg.Google, logger))
	return r
}

// NewRegistryWith assembles a registry from explicit gateways. Tests use it
// to drop in fakes.
func NewRegistryWith(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[Provider]Gateway)}
	for _, g := range gateways {
		r.register(g)
	}
	return r
}

func (r *Registry) register(g Gateway) {
	r.gateways[g.Provider()] = g
}

// Gateway returns the gateway for p.
func (r *Registry) Gateway(p Provider) (Gateway, error) {
	g, ok := r.gateways[p]
	if !ok {
		return nil, derrors.New(derrors.CodeBadRequest, "unsupported provider")
	}
	return g, nil
}

// All returns every registered gateway. Iteration order is not defined;
// callers that care (withdrawal fan-out) key off the member's linked
// providers instead.
func (r *Registry) All() []Gateway {
	out := make([]Gateway, 0, len(r.gateways))
	for _, g := range r.gateways {
		out = append(out, g)
	}
	return out
}
