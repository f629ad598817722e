// Package model defines the data shared by every honeypot component.
//
//   - Service: the emulated protocol an interaction arrived on
//   - Tool: the scanner or attack family a request was fingerprinted as
//   - Classification: the coarse human/bot/scanner/unknown label
//   - Event: one recorded interaction, as stored and forwarded
//
// Types here carry no behavior beyond validation and copying so that the
// protocol, storage and reporting packages can share them without import
// cycles.
package model
