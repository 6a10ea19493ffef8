package recorder

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mqttSink publishes each sample as JSON so a lab host can watch a run
// live. Configured from the environment: MQTT_BROKER and MQTT_TOPIC.
type mqttSink struct {
	client mqtt.Client
	topic  string
}

// newMQTTSinkFromEnv returns (nil, nil) when the sink is not configured.
func newMQTTSinkFromEnv() (Sink, error) {
	broker := os.Getenv("MQTT_BROKER")
	topic := os.Getenv("MQTT_TOPIC")

	if broker == "" {
		return nil, nil
	}
	if topic == "" {
		topic = "dvfs-bench/samples"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("dvfs-bench-%d", os.Getpid())).
		SetCleanSession(true).
		SetKeepAlive(30 * time.Second).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(5*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", broker, token.Error())
	}

	return &mqttSink{client: client, topic: topic}, nil
}

func (s *mqttSink) Write(sample *Sample) error {
	payload, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	token := s.client.Publish(s.topic, 0, false, payload)
	if token.WaitTimeout(time.Second) && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (s *mqttSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
