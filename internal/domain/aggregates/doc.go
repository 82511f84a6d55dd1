// Package aggregates defines domain-facing aggregate contracts.
//
// These contracts avoid persistence/transport details and describe the write
// boundaries where knowledge invariants must hold atomically: one resolved
// node per (owner, book), and one slug per (owner, slug).
package aggregates
