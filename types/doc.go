// Package types defines the shared error taxonomy used across AgentBridge.
//
// Errors fall into two groups. Definition and registry errors (DEFINITION_ERROR,
// NOT_FOUND) are returned synchronously from registration and query calls.
// Runtime errors (RESOLUTION_ERROR, EXECUTION_ERROR, TIMEOUT, CANCELLED) are
// recorded on the affected task inside a running execution and surface only
// through status queries.
package types
