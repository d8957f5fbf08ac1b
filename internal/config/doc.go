// Package config loads the dashboard service configuration.
//
// # Configuration Sources
//
// Values are resolved in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// Environment variables are namespaced with CHURN_ and follow the struct
// layout, e.g.
//
//	CHURN_SERVER_PORT=8080
//	CHURN_LOGGING_LEVEL=debug
//	CHURN_DASHBOARD_PAGE_SIZE=25
//	CHURN_DASHBOARD_SESSION_TTL=30m
//	CHURN_TELEMETRY_ENABLED=false
//
// The YAML file is taken from CHURN_CONFIG_FILE when set, otherwise from
// the first of config.yaml, configs/config.yaml that exists.
package config
