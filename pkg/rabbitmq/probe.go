package rabbitmq

import (
	"context"
	"fmt"
	"net/url"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Probe defaults.
const (
	DefaultAMQPPort  = 5672
	DefaultAMQPSPort = 5671
	probeExchange    = "brokerctl.probe"
	probeTimeout     = 10 * time.Second
)

// ProbeConfig describes how to reach the broker over AMQP. An explicit URI
// wins; otherwise one is assembled from the parts.
type ProbeConfig struct {
	URI      string
	Host     string
	Port     int
	Username string
	Password string
	VHost    string
	UseTLS   bool
	Timeout  time.Duration
}

// Probe checks broker liveness over AMQP, independent of the control tools.
// A broker whose control tool answers but whose listener is dead (or the
// other way round) is a real failure mode; the probe covers the listener
// side.
type Probe struct {
	config ProbeConfig
	logger Logger
}

// NewProbe creates a new AMQP probe.
func NewProbe(config ProbeConfig, logger Logger) *Probe {
	if logger == nil {
		logger = &noOpLogger{}
	}

	if config.Timeout <= 0 {
		config.Timeout = probeTimeout
	}

	return &Probe{config: config, logger: logger}
}

// URI returns the connection URI the probe will dial.
func (p *Probe) URI() string {
	if p.config.URI != "" {
		return p.config.URI
	}

	protocol := "amqp"
	port := p.config.Port

	if p.config.UseTLS {
		protocol = "amqps"

		if port == 0 {
			port = DefaultAMQPSPort
		}
	} else if port == 0 {
		port = DefaultAMQPPort
	}

	vhost := p.config.VHost
	if vhost == "" {
		vhost = "/"
	}

	return fmt.Sprintf("%s://%s:%s@%s:%d/%s",
		protocol,
		url.QueryEscape(p.config.Username),
		url.QueryEscape(p.config.Password),
		p.config.Host,
		port,
		url.QueryEscape(vhost))
}

// Check dials the broker, opens a channel, and declares an auto-delete test
// exchange. Any failure along the way is the probe's verdict.
func (p *Probe) Check(ctx context.Context) error {
	timeout := p.config.Timeout

	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	conn, err := amqp.DialConfig(p.URI(), amqp.Config{
		Dial: amqp.DefaultDial(timeout),
	})
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	defer func() { _ = conn.Close() }()

	channel, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	defer func() { _ = channel.Close() }()

	err = channel.ExchangeDeclare(
		probeExchange, // name
		"direct",      // type
		false,         // durable
		true,          // auto-delete
		false,         // internal
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare probe exchange: %w", err)
	}

	p.logger.Debug("AMQP probe succeeded against %s", p.config.Host)

	return nil
}
