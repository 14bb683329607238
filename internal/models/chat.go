package models

import "time"

// ChatMessage is both the stored record and the broadcast payload. IsDebtor
// is captured when the message is sent.
type ChatMessage struct {
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	IsDebtor bool      `json:"isDebtor"`
	Time     time.Time `json:"time"`
}
