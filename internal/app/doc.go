// Package app holds the use cases behind the HTTP surface: dashboard and block
// management, GitHub account linking, the GitHub passthrough and block
// rendering. It depends on domain ports and the block registry only.
package app
