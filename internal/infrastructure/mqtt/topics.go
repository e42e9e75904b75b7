package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefixSystem is the base for plugsync's own status topics.
const TopicPrefixSystem = "plugsync"

// emeterSuffix is appended to a device topic for telemetry.
const emeterSuffix = "emeter"

// Topics provides builders for the topics plugsync publishes.
//
//	topics := mqtt.Topics{}
//	topics.Emeter("/plugsync/device/kitchen")
//	// Returns: "/plugsync/device/kitchen/emeter"
type Topics struct{}

// Status returns the retained online/offline topic for a client.
//
// Example: plugsync/plugsync-01/status
func (Topics) Status(clientID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixSystem, clientID)
}

// Emeter returns the raw telemetry topic for a device topic.
//
// Example: /plugsync/device/kitchen/emeter
func (Topics) Emeter(deviceTopic string) string {
	return joinTopic(deviceTopic, emeterSuffix)
}

// EmeterField returns the per-field telemetry topic for a device topic.
//
// Example: /plugsync/device/kitchen/emeter/power
func (Topics) EmeterField(deviceTopic, key string) string {
	return joinTopic(deviceTopic, emeterSuffix, key)
}

// joinTopic appends levels to base, avoiding a doubled separator when
// base already ends in "/".
func joinTopic(base string, levels ...string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.Join(levels, "/")
}
