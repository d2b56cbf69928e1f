// Package connectors contains document source implementations. Each
// subpackage adapts one backing system (local filesystem, Google
// Drive) to the driven.DocumentSource port.
package connectors
