/*
Package session serializes scenario runs per device and persists their reports.

A device can only follow one scenario at a time: two interpreters tapping the same
screen would interleave actions and read each other's snapshots. Manager holds a
reference-counted local mutex per device id and, when configured with a
ports.DistributedLocker, a lease shared across processes.
*/
package session
