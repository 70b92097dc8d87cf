// Package config handles loading and validating Gray Logic Device configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The device token should be provided via GRAYDEVICE_DEVICE_TOKEN, not the file
//   - The config file should have restricted permissions (0600)
//   - The device section is only read on first boot; afterwards the identity
//     persisted in the database is authoritative
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.BrokerHost("a1b2c3"))
package config
