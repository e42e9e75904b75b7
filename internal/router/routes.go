package router

import (
	"fmt"
	"sort"

	"github.com/nerrad567/plugsync/internal/infrastructure/config"
)

// Routes maps subscribed topics to location names. Read-only once built.
type Routes struct {
	topics          map[string]string
	keepAliveTopics map[string]string
}

// BuildRoutes derives the topic tables from configuration.
//
// Returns:
//   - *Routes: Primary and keep-alive topic tables
//   - error: ErrTopicConflict if any topic is claimed twice, or
//     ErrUnknownLocation if a keep-alive has no location
func BuildRoutes(cfg *config.Config) (*Routes, error) {
	r := &Routes{
		topics:          make(map[string]string, len(cfg.Locations)),
		keepAliveTopics: make(map[string]string, len(cfg.KeepAlives)),
	}

	for _, name := range cfg.LocationNames() {
		topic := cfg.Topic(name)
		if other, ok := r.topics[topic]; ok {
			return nil, fmt.Errorf("%w: %s claimed by %s and %s", ErrTopicConflict, topic, other, name)
		}
		r.topics[topic] = name
	}

	for _, name := range cfg.KeepAliveNames() {
		if _, ok := cfg.Locations[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLocation, name)
		}
		topic := cfg.KeepAlives[name].SubscribeTopic
		if other, ok := r.topics[topic]; ok {
			return nil, fmt.Errorf("%w: keep alive %s reuses device topic %s of %s", ErrTopicConflict, name, topic, other)
		}
		if other, ok := r.keepAliveTopics[topic]; ok {
			return nil, fmt.Errorf("%w: %s claimed by keep alives %s and %s", ErrTopicConflict, topic, other, name)
		}
		r.keepAliveTopics[topic] = name
	}

	return r, nil
}

// Device returns the location whose primary topic is topic.
func (r *Routes) Device(topic string) (string, bool) {
	name, ok := r.topics[topic]
	return name, ok
}

// KeepAlive returns the location whose keep-alive subscribes to topic.
func (r *Routes) KeepAlive(topic string) (string, bool) {
	name, ok := r.keepAliveTopics[topic]
	return name, ok
}

// Subscriptions returns every topic to subscribe to, sorted.
func (r *Routes) Subscriptions() []string {
	out := make([]string, 0, len(r.topics)+len(r.keepAliveTopics))
	for topic := range r.topics {
		out = append(out, topic)
	}
	for topic := range r.keepAliveTopics {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}

// DeviceTopics returns location name → primary topic.
func (r *Routes) DeviceTopics() map[string]string {
	out := make(map[string]string, len(r.topics))
	for topic, name := range r.topics {
		out[name] = topic
	}
	return out
}
