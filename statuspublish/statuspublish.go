// Package statuspublish publishes match status snapshots to an MQTT broker.
package statuspublish

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/lefinal/plague-server/errors"
	"github.com/lefinal/plague-server/logging"
	"github.com/lefinal/plague-server/plague"
)

const mqttClientID = "plague-server"
const statusTopic = "lefinal/plague/status"
const mqttKeepAlive = 8

const mqttQOS = 0

// Config is the config for the Publisher.
type Config struct {
	// MQTTAddr is the address where the MQTT-server is found.
	MQTTAddr string
}

// Publisher forwards match status snapshots to the MQTT broker. It implements
// plague.StatusListener. Run it with Publisher.Run.
type Publisher struct {
	config Config
	// brokerURL is the URL of the MQTT broker.
	brokerURL *url.URL
	// publish receives snapshots queued for publishing.
	publish chan plague.MatchStatus
}

// NewPublisher creates a Publisher with the given Config. Run it with
// Publisher.Run.
func NewPublisher(config Config) (*Publisher, error) {
	brokerURL, err := url.Parse(config.MQTTAddr)
	if err != nil {
		return nil, errors.NewInternalErrorFromErr(err, "invalid mqtt addr", errors.Details{"was": config.MQTTAddr})
	}
	return &Publisher{
		config:    config,
		brokerURL: brokerURL,
		publish:   make(chan plague.MatchStatus, 16),
	}, nil
}

// HandleMatchStatus queues the snapshot for publishing. If the broker cannot
// keep up, the snapshot is dropped as the next one supersedes it anyway.
func (p *Publisher) HandleMatchStatus(status plague.MatchStatus) {
	select {
	case p.publish <- status:
	default:
		logging.MQTTLogger.Warn("dropping status publish due to full queue")
	}
}

// Run connects to the MQTT broker and forwards queued snapshots until the
// given context.Context is done.
func (p *Publisher) Run(ctx context.Context) error {
	conn, err := autopaho.NewConnection(ctx, p.genClientConfig())
	if err != nil {
		return errors.NewInternalErrorFromErr(err, "create mqtt server connection failed", nil)
	}
	// Forward queued snapshots.
	for {
		select {
		case <-ctx.Done():
			// Shutdown MQTT connection.
			disconnectTimeout, cancelDisconnectTimeout := context.WithTimeout(context.Background(), 3*time.Second)
			err = conn.Disconnect(disconnectTimeout)
			cancelDisconnectTimeout()
			if err != nil {
				return errors.NewInternalErrorFromErr(err, "disconnect from mqtt server failed", nil)
			}
			return ctx.Err()
		case status := <-p.publish:
			p.publishStatus(ctx, conn, status)
		}
	}
}

// publishStatus encodes and publishes the given snapshot. Errors are logged as
// the feed is best-effort.
func (p *Publisher) publishStatus(ctx context.Context, conn *autopaho.ConnectionManager, status plague.MatchStatus) {
	payload, err := json.Marshal(status)
	if err != nil {
		errors.Log(logging.MQTTLogger, errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindEncodeJSON,
			Err:     err,
			Message: "marshal match status",
		})
		return
	}
	_, err = conn.Publish(ctx, &paho.Publish{
		QoS:     mqttQOS,
		Topic:   statusTopic,
		Payload: payload,
	})
	if err != nil {
		errors.Log(logging.MQTTLogger, errors.Error{
			Code:    errors.ErrCommunication,
			Err:     err,
			Message: "publish match status",
			Details: errors.Details{"topic": statusTopic},
		})
	}
}

// genClientConfig generates the autopaho.ClientConfig that is ready to launch.
func (p *Publisher) genClientConfig() autopaho.ClientConfig {
	return autopaho.ClientConfig{
		BrokerUrls: []*url.URL{p.brokerURL},
		KeepAlive:  mqttKeepAlive,
		OnConnectionUp: func(_ *autopaho.ConnectionManager, _ *paho.Connack) {
			logging.MQTTLogger.Info("mqtt server connection established")
		},
		OnConnectError: func(err error) {
			errors.Log(logging.MQTTLogger, errors.Error{
				Code:    errors.ErrCommunication,
				Err:     err,
				Message: "mqtt server connection failed",
			})
		},
		ClientConfig: paho.ClientConfig{
			ClientID: mqttClientID,
			OnServerDisconnect: func(disconnect *paho.Disconnect) {
				reason := string(disconnect.ReasonCode)
				if disconnect.Properties != nil {
					reason = disconnect.Properties.ReasonString
				}
				errors.Log(logging.MQTTLogger, errors.Error{
					Code:    errors.ErrCommunication,
					Message: fmt.Sprintf("mqtt server requested disconnect: %s", reason),
				})
			},
			OnClientError: func(err error) {
				errors.Log(logging.MQTTLogger, errors.Error{
					Code:    errors.ErrCommunication,
					Err:     err,
					Message: "mqtt server connection client error",
				})
			},
		},
	}
}
