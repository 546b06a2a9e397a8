// Package jobs publishes background events produced by the naming services.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/hanko-field/naming/internal/platform/textutil"
	"github.com/hanko-field/naming/internal/services"
)

const generationEventType = "naming.generation.completed"

// PubSubGenerationPublisher publishes generation summaries to a Pub/Sub topic.
type PubSubGenerationPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
	static  map[string]string
}

var _ services.GenerationPublisher = (*PubSubGenerationPublisher)(nil)

// PublisherOption customises the publisher.
type PublisherOption func(*PubSubGenerationPublisher)

// WithStaticAttributes adds attributes to every published message, e.g. the deployment environment.
func WithStaticAttributes(attrs map[string]string) PublisherOption {
	return func(p *PubSubGenerationPublisher) {
		p.static = textutil.NormalizeStringMap(attrs)
	}
}

// NewPubSubGenerationPublisher constructs a Pub/Sub backed generation event publisher.
func NewPubSubGenerationPublisher(topic *pubsub.Topic, opts ...PublisherOption) (*PubSubGenerationPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub generation publisher: topic is required")
	}
	publisher := &PubSubGenerationPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(publisher)
		}
	}
	return publisher, nil
}

// PublishGeneration sends the run summary and waits for the server-assigned message ID.
func (p *PubSubGenerationPublisher) PublishGeneration(ctx context.Context, summary services.GenerationSummary) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub generation publisher: not initialised")
	}

	data, err := p.marshal(summary)
	if err != nil {
		return "", fmt.Errorf("marshal generation summary: %w", err)
	}

	attrs := make(map[string]string, len(p.static)+4)
	for key, value := range p.static {
		attrs[key] = value
	}
	attrs["eventType"] = generationEventType
	setAttr(attrs, "runId", summary.RunID)
	setAttr(attrs, "gender", summary.Gender)
	attrs["withBirthData"] = strconv.FormatBool(summary.WithBirthData)
	if len(summary.RelaxationSteps) > 0 {
		attrs["relaxed"] = "true"
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish generation summary: %w", err)
	}
	return id, nil
}

// Check reports whether the topic exists, for readiness probes.
func (p *PubSubGenerationPublisher) Check(ctx context.Context) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub generation publisher: not initialised")
	}
	ok, err := p.topic.Exists(ctx)
	if err != nil {
		return fmt.Errorf("pubsub topic %s: %w", p.topic.ID(), err)
	}
	if !ok {
		return fmt.Errorf("pubsub topic %s does not exist", p.topic.ID())
	}
	return nil
}

// Stop flushes pending messages.
func (p *PubSubGenerationPublisher) Stop() {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
