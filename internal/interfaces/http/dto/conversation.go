// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"encoding/json"
	"time"

	"knowledge-qa-api/internal/domain/entity"
)

type CreateSessionRequest struct {
	CollectionID string `json:"collection_id" binding:"required,uuid"`
	Title        string `json:"title,omitempty" binding:"omitempty,max=255"`
}

type SessionResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	CollectionID string `json:"collection_id"`
	Title        string `json:"title"`
	TurnCount    int    `json:"turn_count"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func ToSessionResponse(s *entity.ConversationSession) *SessionResponse {
	if s == nil {
		return nil
	}
	return &SessionResponse{
		ID:           s.ID,
		UserID:       s.UserID,
		CollectionID: s.CollectionID,
		Title:        s.Title,
		TurnCount:    s.TurnCount,
		CreatedAt:    s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type SessionListResponse struct {
	Sessions []*SessionResponse `json:"sessions"`
}

func ToSessionListResponse(sessions []*entity.ConversationSession) *SessionListResponse {
	items := make([]*SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		if s == nil {
			continue
		}
		items = append(items, ToSessionResponse(s))
	}
	return &SessionListResponse{Sessions: items}
}

type TurnResponse struct {
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Entities  []string        `json:"entities,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt string          `json:"created_at"`
}

func ToTurnResponse(t *entity.ConversationTurn) *TurnResponse {
	if t == nil {
		return nil
	}
	return &TurnResponse{
		ID:        t.ID,
		Role:      string(t.Role),
		Content:   t.Content,
		Entities:  t.Entities,
		Metadata:  t.Metadata,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type TurnListResponse struct {
	Turns []*TurnResponse `json:"turns"`
}

func ToTurnListResponse(turns []*entity.ConversationTurn) *TurnListResponse {
	items := make([]*TurnResponse, 0, len(turns))
	for _, t := range turns {
		if t == nil {
			continue
		}
		items = append(items, ToTurnResponse(t))
	}
	return &TurnListResponse{Turns: items}
}
