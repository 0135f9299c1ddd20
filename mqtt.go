package main

import (
	"context"
	"encoding/json"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// startMQTT subscribes to the configured topic and queues every message
// request published on it. It returns nil when no broker is configured.
func startMQTT(ctx context.Context, config *Config, queue *Queue, logger *slog.Logger) mqtt.Client {
	if config.MQTTBroker == "" {
		return nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.MQTTBroker)
	opts.SetClientID(config.MQTTClientID)
	if config.MQTTUsername != "" {
		opts.SetUsername(config.MQTTUsername)
		opts.SetPassword(config.MQTTPassword)
	}
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		logger.Info("MQTT connected", "topic", config.MQTTTopic)
		token := c.Subscribe(config.MQTTTopic, 0, messageHandler(queue, logger))
		if token.Wait() && token.Error() != nil {
			logger.Error("MQTT subscribe failed", "topic", config.MQTTTopic, "error", token.Error())
		}
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		logger.Error("MQTT connect failed", "broker", config.MQTTBroker, "error", token.Error())
	}
	go func() {
		<-ctx.Done()
		client.Disconnect(500)
	}()
	return client
}

// messageHandler decodes a JSON Message and queues it.
func messageHandler(queue *Queue, logger *slog.Logger) mqtt.MessageHandler {
	return func(_ mqtt.Client, m mqtt.Message) {
		var msg Message
		if err := json.Unmarshal(m.Payload(), &msg); err != nil {
			logger.Warn("MQTT bad payload", "topic", m.Topic(), "error", err)
			return
		}
		id, err := queue.Enqueue(msg)
		if err != nil {
			logger.Warn("MQTT message rejected", "topic", m.Topic(), "error", err)
			return
		}
		logger.Debug("MQTT message queued", "topic", m.Topic(), "id", id)
	}
}
