package models

import "time"

// Post is owned by exactly one user. At least one of Text, Image or Video is
// present at creation; Image and Video hold stored filenames, not URLs.
type Post struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	Text      string    `json:"text,omitempty" gorm:"type:text"`
	Image     string    `json:"image,omitempty"`
	Video     string    `json:"video,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}
