/*
Package session serialises access to graphs.

A Manager owns one ref-counted mutex per graph ID and, when configured with a
ports.DistributedLocker, also holds a distributed lock so replicas sharing a
store never run or rewrite the same graph concurrently. Engines use it as their
run lock; the HTTP and MCP adapters use it for document access.
*/
package session
