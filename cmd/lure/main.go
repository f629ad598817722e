// Package main provides the entry point for the lure CLI.
//
// lure is a low-interaction honeypot. It emulates an HTTP server, an SSH
// login prompt and an FTP server, fingerprints and classifies every
// interaction and records it in a local SQLite event store.
//
// Usage:
//
//	lure serve
//	lure events -n 50
//	lure report --markdown -o report.md
//
// See --help for all available options.
package main

// main is the entry point for lure.
func main() {
	Execute()
}
