// Package main provides the entry point for the hashharvest CLI.
//
// hashharvest collects file hashes (MD5, SHA-1, SHA-256) from the
// investigation API of an EDR platform and writes them as a deduplicated
// inventory for threat-intel pipelines.
//
// Usage:
//
//	hashharvest collect --server https://edr.example.com --username api@example.com
//	hashharvest collect prod-east prod-west
//	hashharvest history
//
// See --help for all available options.
package main

// main is the entry point for hashharvest.
func main() {
	Execute()
}
