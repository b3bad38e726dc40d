package events

// Event enumerates high-level topics inside the trading core.
type Event string

const (
	EventConnected      Event = "connection.up"
	EventDisconnected   Event = "connection.down"
	EventReconnected    Event = "connection.restored"
	EventConnectFailed  Event = "connection.failed"
	EventOrderSubmitted Event = "order.submitted"
	EventOrderFailed    Event = "order.failed"
	EventOrderFilled    Event = "order.filled"
	EventOrderCancelled Event = "order.cancelled"
	EventCircuitBreaker Event = "risk.circuit_breaker"
	EventDrawdown       Event = "risk.drawdown"
	EventFatalError     Event = "system.fatal"
	EventKillSwitch     Event = "system.kill_switch"
)
