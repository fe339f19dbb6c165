package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/voyagio/payment-service/internal/config"
	"github.com/voyagio/payment-service/internal/domain/errors"
)

func TestFactoryRegistersConfiguredGateways(t *testing.T) {
	f := NewFactory(config.GatewaysConfig{
		Stripe: config.StripeConfig{SecretKey: "sk_test", WebhookSecret: "whsec"},
		MercadoPago: config.MercadoPagoConfig{
			AccessToken:   "token",
			WebhookSecret: "secret",
		},
	}, zap.NewNop())

	assert.True(t, f.Supported("stripe"))
	assert.True(t, f.Supported("mercado_pago"))
	assert.Len(t, f.Names(), 2)

	gw, err := f.Resolve("stripe")
	assert.NoError(t, err)
	assert.Equal(t, "stripe", gw.Name())
}

func TestFactorySkipsUnconfiguredGateways(t *testing.T) {
	f := NewFactory(config.GatewaysConfig{
		Stripe: config.StripeConfig{SecretKey: "sk_test"},
	}, zap.NewNop())

	assert.True(t, f.Supported("stripe"))
	assert.False(t, f.Supported("mercado_pago"))
}

func TestFactoryRejectsUnknownGateway(t *testing.T) {
	f := NewFactory(config.GatewaysConfig{}, zap.NewNop())

	_, err := f.Resolve("paypal")
	assert.Error(t, err)
	assert.Equal(t, errors.ErrUnsupportedGateway, errors.CodeOf(err))
	assert.False(t, f.Supported("paypal"))
}
