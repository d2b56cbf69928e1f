// Package services implements the core use cases: the knowledge index
// (materialize, persist and query the embedding index) and the agent
// (lifecycle plus retrieval-augmented answering).
package services
