package kafka

// Topic definitions for journal domain events
const (
	TopicTradesLogged        = "journal.trades.logged"
	TopicBroadcastsCompleted = "journal.broadcasts.completed"
)
