// Package config loads and validates the agent configuration.
//
// Configuration files are YAML or JSON, chosen by extension:
//
//	listeners:
//	  - type: udp
//	    port: 5545
//	  - type: tcp
//	    port: 5546
//	    format: json
//	reporter:
//	  vm_import_url: http://localhost:8428/api/v1/import/prometheus
//	  period: 10s
//
// Loading happens in four steps: the document is checked against an embedded
// JSON schema, decoded into Config, completed with defaults and finally
// validated. Schema and decode failures are returned as parse errors,
// semantic problems as *ValidationErrors listing every offending field.
//
// Basic usage:
//
//	cfg, err := config.LoadConfig("palantir.yaml")
//	if err != nil {
//	    return err
//	}
package config
