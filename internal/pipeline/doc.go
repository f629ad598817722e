// Package pipeline records one interaction as an event.
//
// Every protocol session hands each completed request unit to a Pipeline.
// The pipeline runs an ordered list of steps over the event:
//
//  1. FingerprintStep sets the tool label
//  2. ClassifyStep sets the classification
//  3. EnrichStep adds GeoIP metadata (optional)
//  4. PersistStep appends the event to the store
//  5. ForwardStep queues the stored event for publication (optional)
//
// A failing step stops the pipeline unless WithContinueOnError is set, so
// an event that could not be stored is never forwarded.
package pipeline
