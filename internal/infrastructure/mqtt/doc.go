// Package mqtt provides the MQTT session used by Gray Logic Device to talk
// to a Watson IoT style platform.
//
// This package manages:
//   - A single broker session with device-token authentication
//   - TLS with optional SHA-1 fingerprint pinning of the broker certificate
//   - Publishing and subscribing with panic-safe handler wrapping
//   - The fixed device topic registry (see Topics)
//
// Unlike a long-running service client, the session does not reconnect on
// its own. The connectivity supervisor decides when to connect, how long to
// back off and when to give up and restart the device, so Connect is an
// ordinary call that may be repeated after a failure or a lost connection.
//
// # Usage
//
//	client, err := mqtt.New(cfg.MQTT, host, mqtt.Credentials{
//	    ClientID: identity.ClientID(),
//	    Username: mqtt.TokenAuthUsername,
//	    Password: identity.Token,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Connect(); err != nil {
//	    // back off and try again
//	}
//	client.Subscribe(mqtt.Topics{}.Command(), 0, handler)
package mqtt
