package bridge

import "github.com/nerrad567/plugsync/internal/keepalive"

// DeviceStatus is a point-in-time view of one plug.
type DeviceStatus struct {
	Name       string            `json:"name"`
	Topic      string            `json:"topic"`
	State      string            `json:"state"`
	Started    bool              `json:"started"`
	Failures   int               `json:"failures"`
	Resolution string            `json:"resolution"`
	KeepAlive  *keepalive.Status `json:"keep_alive,omitempty"`
}
