// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports). The knowledge index and the agent depend
// only on these contracts, never on concrete sources or backends.
package driven
