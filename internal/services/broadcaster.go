package services

import "casino-backend/internal/models"

// Broadcaster pushes server-initiated messages to every connected client.
type Broadcaster interface {
	BroadcastLeaderboard(standings []models.Standing)
	BroadcastChat(msg models.ChatMessage)
	BroadcastNotice(text string)
}

// Refresher is notified after every balance change.
type Refresher interface {
	Refresh()
}
