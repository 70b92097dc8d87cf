// Package influxdb records Gray Logic Device events to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Recording is optional
// (influxdb.enabled in config.yaml) and never on the critical path: points are
// batched by the non-blocking write API and write errors are delivered to a
// callback for logging.
//
// Measurements:
//   - device_connectivity: one point per supervisor state transition
//   - device_ota: one point per firmware update attempt
//   - device_heartbeat: one point per status heartbeat
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without event recording
//	}
//	defer client.Close()
//
//	client.SetDevice(identity.ClientID())
//	client.RecordConnectivity("ready", "")
//
// All Record methods are safe to call on a nil *Client and do nothing.
package influxdb
