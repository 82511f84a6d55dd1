// Package aggregates implements the knowledge write boundary on top of the
// table repos: bind or merge of resolved nodes, and slug assignment. Every
// write runs in one transaction through a TxRunner and reports to Hooks.
package aggregates
