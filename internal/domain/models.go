// Package domain defines the persistence models for users, activity
// records, notes, and chat history. These types are mapped with GORM and
// form the local data layer of the bot; everything else the bot touches
// lives in external collaborators.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// User stores profile data for an identity the bot has seen. Rows are
// upserted on first contact; the allow-list itself stays in configuration
// and is never persisted here.
type User struct {
	ID         uint           `json:"-"          gorm:"primaryKey"`
	TelegramID int64          `json:"telegram_id" gorm:"uniqueIndex;not null"`
	Username   string         `json:"username"   gorm:"type:varchar(255)"`
	FirstName  string         `json:"first_name" gorm:"type:varchar(255)"`
	LastSeenAt time.Time      `json:"last_seen_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// ActivityRecord is the local copy of one dispatched command outcome. The
// same payload is delivered to the workflow-automation collaborator; the
// local row exists for the /stats report and survives collaborator outages.
//
// Write-only on the request path: nothing reads activity rows while
// serving a request.
type ActivityRecord struct {
	ID         uint      `json:"-"        gorm:"primaryKey"`
	TelegramID int64     `json:"user_id"  gorm:"index;not null"`
	Command    string    `json:"command"  gorm:"type:varchar(64);not null;index"`
	Success    bool      `json:"success"  gorm:"not null"`
	Metadata   string    `json:"metadata" gorm:"type:text"` // JSON object
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for ActivityRecord.
func (ActivityRecord) TableName() string { return "activity_records" }

// Note is a user-saved note. Notes are local-first: saving never depends on
// an external collaborator being reachable.
type Note struct {
	ID         string         `json:"id"       gorm:"type:char(36);primaryKey"`
	TelegramID int64          `json:"user_id"  gorm:"index:idx_user_notes;not null"`
	Title      string         `json:"title"    gorm:"type:varchar(255);not null"`
	Body       string         `json:"body"     gorm:"type:text"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"        gorm:"index"`
}

// TableName returns the database table name for Note.
func (Note) TableName() string { return "notes" }

// ChatMessage is one exchange in the conversational history used as short
// context for the free-text chat handler.
//
// Fields:
//   - TelegramID: owner identity (indexed with CreatedAt for recency reads).
//   - Prompt: what the user said.
//   - Reply: what the assistant answered.
//   - Kind: "text", "voice", or "callback".
type ChatMessage struct {
	ID         uint      `json:"-"       gorm:"primaryKey"`
	TelegramID int64     `json:"user_id" gorm:"index:idx_user_history,priority:1;not null"`
	Prompt     string    `json:"prompt"  gorm:"type:text;not null"`
	Reply      string    `json:"reply"   gorm:"type:text"`
	Kind       string    `json:"kind"    gorm:"type:varchar(16);not null;default:'text'"`
	CreatedAt  time.Time `json:"created_at" gorm:"index:idx_user_history,priority:2"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }
