package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/button-blink/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Band          string       `json:"band"`
	BandSince     string       `json:"band_since"`
	BandAgeMs     int64        `json:"band_age_ms"`
	BlinkPeriodMs int64        `json:"blink_period_ms"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"band_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of band transition counts.
type CountsJSON struct {
	Short  int `json:"short"`
	Medium int `json:"medium"`
	Long   int `json:"long"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	ProbeMs      int64  `json:"probe_ms"`
	TickMs       int64  `json:"tick_ms"`
	DwellMode    string `json:"dwell_mode"`
	DwellMs      int64  `json:"dwell_ms"`
	MediumHalfMs int64  `json:"medium_half_ms"`
	LongHalfMs   int64  `json:"long_half_ms"`
	PollMs       int64  `json:"poll_ms"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
}

// BlinkPeriodMs returns the LED period for the snapshot's band, 0 when off.
func BlinkPeriodMs(snap Snapshot) int64 {
	switch snap.Band {
	case logic.Medium:
		return 2 * snap.Config.MediumHalfMs
	case logic.Long:
		return 2 * snap.Config.LongHalfMs
	}
	return 0
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Band:          snap.Band.String(),
		BandAgeMs:     snap.BandAge().Milliseconds(),
		BlinkPeriodMs: BlinkPeriodMs(snap),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Short:  snap.Counts.Short,
			Medium: snap.Counts.Medium,
			Long:   snap.Counts.Long,
		},
		Config: ConfigJSON{
			ProbeMs:      snap.Config.ProbeMs,
			TickMs:       snap.Config.TickMs,
			DwellMode:    snap.Config.DwellMode,
			DwellMs:      snap.Config.DwellMs,
			MediumHalfMs: snap.Config.MediumHalfMs,
			LongHalfMs:   snap.Config.LongHalfMs,
			PollMs:       snap.Config.PollMs,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
		},
	}
	if !snap.BandSince.IsZero() {
		inner.BandSince = snap.BandSince.UTC().Format(time.RFC3339)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
