package gateway

import (
	"go.uber.org/zap"

	"github.com/voyagio/payment-service/internal/config"
	"github.com/voyagio/payment-service/internal/domain/errors"
	domaingw "github.com/voyagio/payment-service/internal/domain/gateway"
	"github.com/voyagio/payment-service/internal/gateway/mercadopago"
	"github.com/voyagio/payment-service/internal/gateway/stripe"
)

// Factory resolves gateway identifiers to their adapters. Only gateways with
// credentials in the configuration are registered.
type Factory struct {
	gateways map[string]domaingw.Gateway
}

// NewFactory builds the factory from the gateway configuration.
func NewFactory(cfg config.GatewaysConfig, logger *zap.Logger) *Factory {
	f := &Factory{gateways: make(map[string]domaingw.Gateway)}

	if cfg.Stripe.SecretKey != "" {
		g := stripe.NewGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, logger)
		f.gateways[g.Name()] = g
	}
	if cfg.MercadoPago.AccessToken != "" {
		g := mercadopago.NewGateway(cfg.MercadoPago.AccessToken, cfg.MercadoPago.WebhookSecret, cfg.MercadoPago.BaseURL, logger)
		f.gateways[g.Name()] = g
	}

	return f
}

// Resolve returns the adapter for a gateway identifier.
func (f *Factory) Resolve(name string) (domaingw.Gateway, error) {
	g, ok := f.gateways[name]
	if !ok {
		return nil, errors.UnsupportedGateway(name)
	}
	return g, nil
}

// Supported reports whether a gateway identifier is registered.
func (f *Factory) Supported(name string) bool {
	_, ok := f.gateways[name]
	return ok
}

// Names lists the registered gateway identifiers.
func (f *Factory) Names() []string {
	names := make([]string, 0, len(f.gateways))
	for name := range f.gateways {
		names = append(names, name)
	}
	return names
}
