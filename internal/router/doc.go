// Package router classifies inbound MQTT messages by topic and dispatches
// them to the configuration store, the OTA orchestrator or the restarter.
//
// Classification happens once, in Classify, and yields a Kind. Dispatch then
// switches on the Kind, so adding a topic means adding a Kind and a case.
//
// Classification order (first match wins):
//
//	iotdm-1/response                           acknowledgement, ignored
//	iotdm-1/mgmt/initiate/device/reboot        restart
//	iotdm-1/mgmt/initiate/device/factory_reset clear storage, restart
//	iotdm-1/device/update                      replace metadata
//	iot-2/cmd/...                              upgrade or config report
//
// Anything else is ignored without side effects. Every handled kind is
// journaled before it runs when a Journal is set.
package router
