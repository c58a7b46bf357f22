// Package config provides configuration management for the assistant.
//
// Configuration is loaded from environment variables and validated on startup.
// All configuration options have sensible defaults for development. Routing
// keywords, CEL rules and guardrail extensions live in an optional YAML policy
// file named by POLICY_FILE:
//
//	classifier:
//	  keywords:
//	    LIVE_SEARCH: [latest, today, news]
//	  rules:
//	    - condition: 'query.lower.contains("cve-")'
//	      capabilities: [LIVE_SEARCH, DOCUMENT_RETRIEVAL]
//	      rationale: vulnerability lookups need fresh data
//	guardrail:
//	  denied_identifiers: [SECRETS]
//	  max_length: 4000
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	policy, err := config.LoadPolicy(cfg.PolicyFile)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r, err := router.NewRouter(completer, cfg.RouterConfig(policy), logger)
package config
