// Package driving provides interfaces for use cases exposed by the core
// (primary/inbound ports). The CLI and any future transport layer call
// the core only through these contracts.
package driving
