// Package classify labels interactions as human, bot or scanner.
//
// The HTTP session uses the timing Engine, which keeps a bounded per-IP
// history of request timestamps: a fixed ring per address and an LRU over
// addresses. SSH and FTP sessions use attempt- and verb-based strategies.
// All three satisfy the Classifier interface so the recording pipeline
// treats them uniformly.
package classify
