// Package domain defines the dashboard, block and access types and the ports
// the application talks to. Adapters implement the ports; nothing in here does
// I/O.
package domain
