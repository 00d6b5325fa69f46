package server

// Server is the lifecycle contract of the vaultd transport layer.
type Server interface {
	// RunServer blocks serving requests until a shutdown signal arrives or
	// the listener fails.
	RunServer()

	// Shutdown drains in-flight requests and releases the listener.
	Shutdown()
}
