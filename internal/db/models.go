package db

import (
	"time"

	"gorm.io/datatypes"
)

// Gender values accepted for User.Gender.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Relationship types accepted for User.SeekingRelationshipType.
const (
	RelationshipSerious    = "serious"
	RelationshipCasual     = "casual"
	RelationshipFriendship = "friendship"
)

// Message types.
const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeSystem = "system"
)

// User table. Name and Age are derived fields, recomputed explicitly by the
// user service on create/update (no persistence hooks).
type User struct {
	ID                      uint64 `gorm:"primaryKey;autoIncrement"`
	Username                string `gorm:"uniqueIndex;size:50;not null"`
	Email                   string `gorm:"uniqueIndex;size:100;not null"`
	PasswordHash            string `gorm:"size:255;not null"`
	Name                    string `gorm:"size:200;not null"`
	FirstName               string `gorm:"size:100"`
	LastName                string `gorm:"size:100"`
	BirthDate               *time.Time
	Age                     int            `gorm:"not null;default:0"`
	Gender                  string         `gorm:"size:16;not null"`
	Biography               string         `gorm:"size:500"`
	City                    string         `gorm:"size:100"`
	Interests               datatypes.JSON // JSON array of interest strings
	SeekingRelationshipType string         `gorm:"size:32;not null"`
	Enabled                 bool           `gorm:"default:true"`
	CreatedAt               time.Time      `gorm:"autoCreateTime"`
	UpdatedAt               time.Time      `gorm:"autoUpdateTime"`
}

// Like is a directed "liker likes liked" edge.
//
// Unique index on (liker_id, liked_user_id) is the last line of defence
// against concurrent duplicate likes: the existence check and insert run in
// one transaction, and a duplicate-key failure is still translated to an
// already-exists error (see repository.LikeRepository.Create).
//
// A match is never stored; it is derived from the presence of both directed
// edges.
type Like struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	LikerID     uint64    `gorm:"not null;uniqueIndex:idx_liker_liked,priority:1"`
	LikedUserID uint64    `gorm:"not null;uniqueIndex:idx_liker_liked,priority:2;index:idx_liked_user"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// Photo belongs to exactly one user. Position is a 1-based ordinal unique per
// user; at most one photo per user has IsMain set. Both invariants are
// maintained procedurally by the photo service inside transactions.
type Photo struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	UserID      uint64 `gorm:"not null;uniqueIndex:idx_user_position,priority:1"`
	URL         string `gorm:"size:500;not null"`
	Position    int    `gorm:"not null;uniqueIndex:idx_user_position,priority:2"`
	IsMain      bool   `gorm:"not null;default:false"`
	AltText     string `gorm:"size:255"`
	FileSize    int64
	Width       int
	Height      int
	ContentType string    `gorm:"size:50"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// Message is a directed sender -> receiver message. Each side hides the row
// independently via the deleted-by flags; the row is physically purged once
// both flags are set.
type Message struct {
	ID                uint64 `gorm:"primaryKey;autoIncrement"`
	SenderID          uint64 `gorm:"not null;index:idx_sender_receiver,priority:1"`
	ReceiverID        uint64 `gorm:"not null;index:idx_sender_receiver,priority:2"`
	Content           string `gorm:"type:text;not null"`
	IsRead            bool   `gorm:"not null;default:false"`
	ReadAt            *time.Time
	MessageType       string    `gorm:"size:16;not null;default:text"`
	DeletedBySender   bool      `gorm:"not null;default:false"`
	DeletedByReceiver bool      `gorm:"not null;default:false"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

// ValidGender reports whether g is an accepted gender value.
func ValidGender(g string) bool {
	return g == GenderMale || g == GenderFemale
}

// ValidRelationshipType reports whether rt is an accepted relationship type.
func ValidRelationshipType(rt string) bool {
	switch rt {
	case RelationshipSerious, RelationshipCasual, RelationshipFriendship:
		return true
	}
	return false
}

// ValidMessageType reports whether mt is an accepted message type.
func ValidMessageType(mt string) bool {
	switch mt {
	case MessageTypeText, MessageTypeImage, MessageTypeSystem:
		return true
	}
	return false
}
