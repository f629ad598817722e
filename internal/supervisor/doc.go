// Package supervisor runs the three honeypot services side by side.
//
// A Supervisor owns one listener per emulated protocol plus an optional
// Prometheus endpoint. Listen binds everything up front so a port clash is
// reported before any service starts. Serve then runs every listener under
// one errgroup until the context is cancelled or a listener fails.
//
// All services share one classification engine, one event store and, when
// configured, one GeoIP enricher and one Kafka forwarder. Cancelling the
// context closes the listeners and every open session immediately. Event
// appends already in flight finish, and the forwarder drains its queue
// after the last session has exited.
package supervisor
