package models

import (
	"time"

	"gorm.io/gorm"
)

// FriendRequest is a directed edge from sender to recipient. It exists only
// while pending: accepting converts it into a Friendship row, rejecting
// discards it. The unique index keeps at most one pending request per
// ordered pair.
type FriendRequest struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SenderID    uint      `json:"sender_id" gorm:"not null;uniqueIndex:idx_friend_request_pair"`
	RecipientID uint      `json:"recipient_id" gorm:"not null;uniqueIndex:idx_friend_request_pair"`
	CreatedAt   time.Time `json:"created_at"`

	Sender    User `json:"-" gorm:"foreignKey:SenderID"`
	Recipient User `json:"-" gorm:"foreignKey:RecipientID"`
}

// Friendship stores one row per friend pair. UserID1 is always the smaller
// ID, so the unique index prevents duplicate or asymmetric edges and lookups
// stay order-independent.
type Friendship struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID1   uint      `json:"user_id_1" gorm:"column:user_id1;not null;uniqueIndex:idx_friendship_pair"`
	UserID2   uint      `json:"user_id_2" gorm:"column:user_id2;not null;uniqueIndex:idx_friendship_pair"`
	CreatedAt time.Time `json:"created_at"`

	User1 User `json:"-" gorm:"foreignKey:UserID1"`
	User2 User `json:"-" gorm:"foreignKey:UserID2"`
}

// BeforeCreate enforces the canonical UserID1 < UserID2 ordering.
func (f *Friendship) BeforeCreate(_ *gorm.DB) error {
	if f.UserID1 > f.UserID2 {
		f.UserID1, f.UserID2 = f.UserID2, f.UserID1
	}
	return nil
}
