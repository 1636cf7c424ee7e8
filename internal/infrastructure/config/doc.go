// Package config handles loading and validating gatewatch configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (GATEWATCH_SECTION_KEY)
//   - Validation of required fields
//   - Default value handling
//
// The watchdog section decodes straight into watchdog.Overrides; fields left
// out keep the watchdog defaults and the allowed ranges are enforced by the
// watchdog package.
//
// Security Considerations:
//   - Broker credentials and tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/gatewatch.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Gateway.Name)
package config
