/*
Package session implements the per-identity conversation store.

A Manager wraps any ports.StateStore and exposes the operations the
workflows need (GetState, SetState, GetData, MergeData, ReplaceData, Clear).
Each operation is one load-modify-save under a per-identity lock, optionally
backed by a distributed lock so several replicas can share a Redis store.
*/
package session
