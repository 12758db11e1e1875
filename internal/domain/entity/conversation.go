// Package entity 定义领域实体
package entity

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Role 对话角色枚举
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationSession 会话实体，一个会话绑定一个集合
type ConversationSession struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID       string    `json:"user_id" gorm:"type:uuid;index;not null"`
	CollectionID string    `json:"collection_id" gorm:"type:uuid;index;not null"`
	Title        string    `json:"title,omitempty" gorm:"type:varchar(255)"`
	TurnCount    int       `json:"turn_count" gorm:"default:0"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (ConversationSession) TableName() string {
	return "conversation_sessions"
}

// NewConversationSession 创建新会话
func NewConversationSession(userID, collectionID, title string) *ConversationSession {
	now := time.Now()
	return &ConversationSession{
		UserID:       userID,
		CollectionID: collectionID,
		Title:        title,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ConversationTurn 会话轮次，Entities 记录从用户提问中抽取的实体
type ConversationTurn struct {
	ID        string          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID string          `json:"session_id" gorm:"type:uuid;index;not null"`
	Role      Role            `json:"role" gorm:"type:varchar(16);not null"`
	Content   string          `json:"content" gorm:"type:text;not null"`
	Entities  pq.StringArray  `json:"entities,omitempty" gorm:"type:text[]"`
	Metadata  json.RawMessage `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (ConversationTurn) TableName() string {
	return "conversation_turns"
}

// NewConversationTurn 创建新轮次
func NewConversationTurn(sessionID string, role Role, content string, metadata json.RawMessage) *ConversationTurn {
	return &ConversationTurn{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}
