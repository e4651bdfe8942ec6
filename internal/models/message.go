package models

import "time"

// Message is a directed, timestamped direct message. Read transitions
// false->true exactly once, when the recipient views the thread or polls for
// new messages; it never reverts.
type Message struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SenderID    uint      `json:"sender_id" gorm:"index;not null"`
	RecipientID uint      `json:"recipient_id" gorm:"index;not null"`
	Text        string    `json:"text" gorm:"type:text"`
	Timestamp   time.Time `json:"timestamp" gorm:"index"`
	Read        bool      `json:"read" gorm:"default:false"`
}

// ChatSummary is one entry of the home-page chat list: the counterpart, the
// most recent message exchanged with them and how many of their messages the
// viewer has not read yet.
type ChatSummary struct {
	User        User     `json:"user"`
	LastMessage *Message `json:"last_message"`
	UnreadCount int64    `json:"unread_count"`
}

// SendMessageRequest defines the form body for sending a direct message.
type SendMessageRequest struct {
	RecipientUsername string `json:"recipient_username" form:"recipient_username" validate:"required"`
	Message           string `json:"message" form:"message"`
}
