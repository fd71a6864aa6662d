// Package config provides configuration parsing for meld clients.
//
// The configuration is stored in meld.json (or meld.yaml) next to the page
// being driven. This package handles loading, saving, and validating it.
//
// # Configuration File Structure
//
//	{
//	  "prefix": "meld:",
//	  "debounce": "250ms",
//	  "pollInterval": "2s",
//	  "transport": {
//	    "url": "ws://localhost:5000/meld",
//	    "codec": "json",
//	    "writeTimeout": "10s",
//	    "readLimit": 1048576
//	  },
//	  "control": { "addr": "127.0.0.1:7070" },
//	  "metrics": { "namespace": "meld" },
//	  "snapshot": { "backend": "s3", "bucket": "meld-snapshots" }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Debounce:", cfg.DebounceDuration())
package config
