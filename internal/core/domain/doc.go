// Package domain contains the core entities of the presale assistance
// backend: indexed documents, source file listings, agent readiness, and
// the sentinel errors shared across the ports.
package domain
