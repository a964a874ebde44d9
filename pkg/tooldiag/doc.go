// Package tooldiag provides read-only diagnostics over toolmgr-managed
// services: one-shot connection tests, a bounded performance sampler,
// a tool inventory, threshold-driven recommendations, and a structured
// report. A small HTTP surface exposes the same data as JSON.
//
// Diagnostics never invoke remote tools; every probe is a lightweight
// health check, so running them against production services is safe.
package tooldiag
