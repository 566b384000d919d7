// Package config loads espkey tool configuration.
//
// # Overview
//
// The tool talks to one or more ESPKey devices. Each device needs a base URL
// and, when the web UI is password protected, a user and password. Global
// settings cover the HTTP timeout, where run records are written, and the
// log level.
//
// # Resolution Order
//
// Later sources win:
//
//  1. Built-in defaults
//  2. The TOML file given to Load, else EKA_CONFIG_FILE, else
//     ~/.config/espkey/config.toml
//  3. EKA_* environment variables
//  4. Command-line Overrides
//
// A missing config file is not an error. EKA_BASE_URL, EKA_WEB_USER and
// EKA_WEB_PASS (and the matching flags) patch the default device, creating
// one named "default" when nothing is configured.
//
// # Defaults
//
//   - timeout: 15s
//   - output_dir: current directory
//   - log_level: info
//
// # TOML Format
//
//	default_device = "lab"
//	timeout = "10s"
//	output_dir = "~/espkey-runs"
//	log_level = "debug"
//
//	[devices.lab]
//	base_url = "http://192.168.4.1"
//	web_user = "admin"
//	web_pass = "secret"
//
// Bare host values such as "192.168.4.1" get an http:// scheme. Tilde
// expansion applies to output_dir and the config path.
//
// # Validation
//
// Load validates devices with go-playground/validator: base_url must be a
// URL, and web_user and web_pass come as a pair. All problems are joined
// into one error. When exactly one device exists it becomes the default.
package config
