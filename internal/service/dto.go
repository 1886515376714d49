// Package service implements the business operations behind the HTTP API.
// Services validate input, run invariant-sensitive writes inside single
// transactions, and map persisted rows to response DTOs.
package service

import (
	"encoding/json"
	"time"

	"github.com/meetwo/meetwo-server/internal/db"
)

// UserResponse is the public shape of a user profile. The password hash never
// leaves the service layer.
type UserResponse struct {
	ID                      uint64     `json:"id"`
	Username                string     `json:"username"`
	Email                   string     `json:"email"`
	Name                    string     `json:"name"`
	FirstName               string     `json:"firstName,omitempty"`
	LastName                string     `json:"lastName,omitempty"`
	BirthDate               *time.Time `json:"birthDate,omitempty"`
	Age                     int        `json:"age"`
	Gender                  string     `json:"gender"`
	Biography               string     `json:"biography,omitempty"`
	City                    string     `json:"city,omitempty"`
	Interests               []string   `json:"interests"`
	SeekingRelationshipType string     `json:"seekingRelationshipType"`
	Enabled                 bool       `json:"enabled"`
	MainPhotoURL            string     `json:"mainPhotoUrl,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}

// NewUserResponse maps a user row to its public DTO.
func NewUserResponse(u *db.User) *UserResponse {
	var interests []string
	if len(u.Interests) > 0 {
		_ = json.Unmarshal(u.Interests, &interests)
	}
	if interests == nil {
		interests = []string{}
	}
	return &UserResponse{
		ID:                      u.ID,
		Username:                u.Username,
		Email:                   u.Email,
		Name:                    u.Name,
		FirstName:               u.FirstName,
		LastName:                u.LastName,
		BirthDate:               u.BirthDate,
		Age:                     u.Age,
		Gender:                  u.Gender,
		Biography:               u.Biography,
		City:                    u.City,
		Interests:               interests,
		SeekingRelationshipType: u.SeekingRelationshipType,
		Enabled:                 u.Enabled,
		CreatedAt:               u.CreatedAt,
		UpdatedAt:               u.UpdatedAt,
	}
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

// LikeResponse is the public shape of a like edge. IsMatch is a side channel
// telling the caller whether this like completed a mutual match.
type LikeResponse struct {
	ID          uint64    `json:"id"`
	LikerID     uint64    `json:"likerId"`
	LikedUserID uint64    `json:"likedUserId"`
	IsMatch     bool      `json:"isMatch"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewLikeResponse maps a like row to its DTO.
func NewLikeResponse(l *db.Like, isMatch bool) *LikeResponse {
	return &LikeResponse{
		ID:          l.ID,
		LikerID:     l.LikerID,
		LikedUserID: l.LikedUserID,
		IsMatch:     isMatch,
		CreatedAt:   l.CreatedAt,
	}
}

// LikePage is one page of received likes plus the cursor for the next page.
type LikePage struct {
	Likes     []LikeResponse `json:"likes"`
	NextToken *string        `json:"nextToken,omitempty"`
}

// MatchResponse describes a derived mutual match. MatchedAt is the moment the
// later of the two likes was created.
type MatchResponse struct {
	User      *UserResponse `json:"user"`
	MatchedAt time.Time     `json:"matchedAt"`
}

// TopLikedUser is one row of the most-liked ranking.
type TopLikedUser struct {
	User      *UserResponse `json:"user"`
	LikeCount int64         `json:"likeCount"`
}

// LikeStats aggregates a user's like activity.
type LikeStats struct {
	UserID          uint64  `json:"userId"`
	LikesGiven      int64   `json:"likesGiven"`
	LikesReceived   int64   `json:"likesReceived"`
	MatchesCount    int64   `json:"matchesCount"`
	LikeBackRate    float64 `json:"likeBackRate"`
	PopularityScore float64 `json:"popularityScore"`
}

// PhotoResponse is the public shape of a photo.
type PhotoResponse struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"userId"`
	URL         string    `json:"url"`
	Position    int       `json:"position"`
	IsMain      bool      `json:"isMain"`
	AltText     string    `json:"altText,omitempty"`
	FileSize    int64     `json:"fileSize,omitempty"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewPhotoResponse maps a photo row to its DTO.
func NewPhotoResponse(p *db.Photo) *PhotoResponse {
	return &PhotoResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		URL:         p.URL,
		Position:    p.Position,
		IsMain:      p.IsMain,
		AltText:     p.AltText,
		FileSize:    p.FileSize,
		Width:       p.Width,
		Height:      p.Height,
		ContentType: p.ContentType,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// MessageResponse is the public shape of a message.
type MessageResponse struct {
	ID          uint64     `json:"id"`
	SenderID    uint64     `json:"senderId"`
	ReceiverID  uint64     `json:"receiverId"`
	Content     string     `json:"content"`
	IsRead      bool       `json:"isRead"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
	MessageType string     `json:"messageType"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewMessageResponse maps a message row to its DTO.
func NewMessageResponse(m *db.Message) *MessageResponse {
	return &MessageResponse{
		ID:          m.ID,
		SenderID:    m.SenderID,
		ReceiverID:  m.ReceiverID,
		Content:     m.Content,
		IsRead:      m.IsRead,
		ReadAt:      m.ReadAt,
		MessageType: m.MessageType,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ConversationSummary is one entry of the conversation listing: the other
// party, the last visible message, the caller's unread count and a short tail
// of recent messages.
type ConversationSummary struct {
	Partner        *UserResponse     `json:"partner"`
	LastMessage    *MessageResponse  `json:"lastMessage,omitempty"`
	UnreadCount    int64             `json:"unreadCount"`
	RecentMessages []MessageResponse `json:"recentMessages"`
}

// MessageStats aggregates a user's messaging activity.
type MessageStats struct {
	UserID              uint64  `json:"userId"`
	MessagesSent        int64   `json:"messagesSent"`
	MessagesReceived    int64   `json:"messagesReceived"`
	UnreadCount         int64   `json:"unreadCount"`
	ActiveConversations int     `json:"activeConversations"`
	AvgResponseMinutes  float64 `json:"avgResponseMinutes"`
}
