package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementConnectivity = "device_connectivity"
	measurementOTA          = "device_ota"
	measurementHeartbeat    = "device_heartbeat"
)

// RecordConnectivity records the supervisor entering state. detail is the
// failure reason, if any.
func (c *Client) RecordConnectivity(state, detail string) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(connectivityPoint(c.deviceTag(), state, detail, time.Now()))
}

// RecordOTA records the outcome of one firmware update attempt.
func (c *Client) RecordOTA(attemptID, outcome string, elapsed time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(otaPoint(c.deviceTag(), attemptID, outcome, elapsed, time.Now()))
}

// RecordHeartbeat records the periodic liveness sample.
func (c *Client) RecordHeartbeat(uptime time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(heartbeatPoint(c.deviceTag(), uptime, time.Now()))
}

func connectivityPoint(device, state, detail string, ts time.Time) *write.Point {
	fields := map[string]interface{}{"count": 1}
	if detail != "" {
		fields["detail"] = detail
	}
	return write.NewPoint(
		measurementConnectivity,
		map[string]string{"device": device, "state": state},
		fields,
		ts,
	)
}

func otaPoint(device, attemptID, outcome string, elapsed time.Duration, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementOTA,
		map[string]string{"device": device, "outcome": outcome},
		map[string]interface{}{
			"attempt_id": attemptID,
			"elapsed_ms": elapsed.Milliseconds(),
		},
		ts,
	)
}

func heartbeatPoint(device string, uptime time.Duration, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementHeartbeat,
		map[string]string{"device": device},
		map[string]interface{}{"uptime_s": int64(uptime.Seconds())},
		ts,
	)
}
