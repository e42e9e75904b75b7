// Package config handles loading and validating plugsync configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading secrets from an optional .env file
//   - Overriding with environment variables
//   - Validation of required fields
//   - Per-location resolution of topics and poll intervals
//
// Security Considerations:
//   - Broker passwords and InfluxDB tokens should be set via environment
//     variables or the .env file, not committed in config.yaml
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Topic("kitchen"))
package config
