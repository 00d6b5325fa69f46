// Package http implements the HTTP transport layer of vaultd, the hosted
// persistence service. It exposes the ciphertext store — salt records,
// encrypted item envelopes, and session escrows — over a REST API scoped to
// the authenticated user. Authentication, logging, tracing, and compression
// concerns are all handled at this layer before requests reach the store.
//
// The service is zero-knowledge by construction: every payload that crosses
// this API is either public metadata or ciphertext sealed on the client.
package http
