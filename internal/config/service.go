package config

import "time"

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`

	// ConfirmDegrade controls what happens when the gateway confirmation
	// call fails for a payment that already has a gateway transaction id:
	// true marks the payment completed locally, false surfaces the error.
	ConfirmDegrade bool `yaml:"confirm_degrade"`
}

type GatewaysConfig struct {
	Stripe      StripeConfig      `yaml:"stripe"`
	MercadoPago MercadoPagoConfig `yaml:"mercado_pago"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type MercadoPagoConfig struct {
	AccessToken   string `yaml:"access_token"`
	WebhookSecret string `yaml:"webhook_secret"`
	BaseURL       string `yaml:"base_url"`
}

// BreakerConfig holds circuit breaker settings applied per gateway.
type BreakerConfig struct {
	FailureThreshold int      `yaml:"failure_threshold"`
	Window           Duration `yaml:"window"`
	ResetTimeout     Duration `yaml:"reset_timeout"`
	HalfOpenMaxCalls int      `yaml:"half_open_max_calls"`
}

func (c *BreakerConfig) applyDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.Window <= 0 {
		c.Window = Duration(10 * time.Second)
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = Duration(60 * time.Second)
	}
	if c.HalfOpenMaxCalls <= 0 {
		c.HalfOpenMaxCalls = 3
	}
}

// WebhookConfig holds settings for asynchronous webhook event processing.
type WebhookConfig struct {
	Workers      int      `yaml:"workers"`
	QueueSize    int      `yaml:"queue_size"`
	PollInterval Duration `yaml:"poll_interval"`
	MaxAttempts  int      `yaml:"max_attempts"`
}

func (c *WebhookConfig) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.PollInterval <= 0 {
		c.PollInterval = Duration(30 * time.Second)
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 8
	}
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	Output      string `yaml:"output"`
	FilePath    string `yaml:"file_path"`
	Development bool   `yaml:"development"`
}
