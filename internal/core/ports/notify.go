package ports

// Notifier surfaces user-facing messages produced by the engine: mutation
// confirmations, rollbacks and partial-failure warnings.
type Notifier interface {
	Info(message string)
	Error(message string)
}
