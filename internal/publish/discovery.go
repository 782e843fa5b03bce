package publish

import (
	"context"
	"fmt"
)

const DiscoveryTopic = "homeassistant/sensor/amedas/config"

type Device struct {
	Identifiers  []string `json:"ids"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"mf"`
	Model        string   `json:"mdl"`
}

// Discovery is the Home Assistant MQTT discovery descriptor, using the
// abbreviated keys.
type Discovery struct {
	Name                string `json:"name"`
	UniqueID            string `json:"uniq_id"`
	StateTopic          string `json:"stat_t"`
	JSONAttributesTopic string `json:"json_attr_t"`
	AvailabilityTopic   string `json:"avty_t"`
	PayloadAvailable    string `json:"pl_avail"`
	PayloadNotAvailable string `json:"pl_not_avail"`
	Device              Device `json:"dev"`
}

func NewDiscovery(t Topics) Discovery {
	return Discovery{
		Name:                "JMA AMEDAS Raw",
		UniqueID:            "jma_amedas_raw_1",
		StateTopic:          t.State,
		JSONAttributesTopic: t.Attributes,
		AvailabilityTopic:   t.Availability,
		PayloadAvailable:    PayloadOnline,
		PayloadNotAvailable: PayloadOffline,
		Device: Device{
			Identifiers:  []string{"amedas"},
			Name:         "AMEDAS Feed",
			Manufacturer: "fjworks",
			Model:        "JMA MQTT bridge",
		},
	}
}

// PublishDiscovery announces the sensor on topic and marks it online.
func (p *Publisher) PublishDiscovery(ctx context.Context, topic string, d Discovery) error {
	payload, err := Encode(d)
	if err != nil {
		return fmt.Errorf("encode discovery: %w", err)
	}
	if err := p.publish(ctx, topic, payload); err != nil {
		return err
	}
	if err := p.publish(ctx, d.AvailabilityTopic, []byte(PayloadOnline)); err != nil {
		return err
	}
	p.log.Infow("publish: discovery sent", "topic", topic, "unique_id", d.UniqueID)
	return nil
}
