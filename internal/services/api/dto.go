package api

import (
	"time"

	chatstorage "github.com/pawtrail/pawtrail/internal/services/chat/storage"
	notifstorage "github.com/pawtrail/pawtrail/internal/services/notifications/storage"
	petsapp "github.com/pawtrail/pawtrail/internal/services/pets/app"
	petsstorage "github.com/pawtrail/pawtrail/internal/services/pets/storage"
	usersstorage "github.com/pawtrail/pawtrail/internal/services/users/storage"
)

type userJSON struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	Phone        string     `json:"phone"`
	IsVerified   bool       `json:"is_verified"`
	IsOnline     bool       `json:"is_online"`
	LastActiveAt *time.Time `json:"last_active_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toUserJSON(u usersstorage.User) userJSON {
	return userJSON{
		ID:           u.ID,
		Email:        u.Email,
		FullName:     u.FullName,
		Phone:        u.Phone,
		IsVerified:   u.IsVerified,
		IsOnline:     u.IsOnline,
		LastActiveAt: u.LastActiveAt,
		CreatedAt:    u.CreatedAt,
	}
}

type photoJSON struct {
	ID        int64     `json:"id"`
	PhotoURL  string    `json:"photo_url"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

type petJSON struct {
	ID                  int64       `json:"id"`
	OwnerID             int64       `json:"owner_id"`
	Name                string      `json:"name"`
	Species             string      `json:"species"`
	Breed               string      `json:"breed"`
	Age                 *int        `json:"age"`
	Color               string      `json:"color"`
	Gender              string      `json:"gender"`
	DistinctiveFeatures string      `json:"distinctive_features"`
	Status              string      `json:"status"`
	LastSeenLocation    string      `json:"last_seen_location"`
	CoordX              string      `json:"coord_x"`
	CoordY              string      `json:"coord_y"`
	LostDate            *time.Time  `json:"lost_date"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
	Photos              []photoJSON `json:"photos"`
}

func toPetJSON(p petsapp.PetWithPhotos) petJSON {
	photos := make([]photoJSON, 0, len(p.Photos))
	for _, ph := range p.Photos {
		photos = append(photos, photoJSON{
			ID:        ph.ID,
			PhotoURL:  ph.PhotoURL,
			IsPrimary: ph.IsPrimary,
			CreatedAt: ph.CreatedAt,
		})
	}
	return petJSON{
		ID:                  p.Pet.ID,
		OwnerID:             p.Pet.OwnerID,
		Name:                p.Pet.Name,
		Species:             p.Pet.Species,
		Breed:               p.Pet.Breed,
		Age:                 p.Pet.Age,
		Color:               p.Pet.Color,
		Gender:              p.Pet.Gender,
		DistinctiveFeatures: p.Pet.DistinctiveFeatures,
		Status:              string(p.Pet.Status),
		LastSeenLocation:    p.Pet.LastSeenLocation,
		CoordX:              p.Pet.CoordX,
		CoordY:              p.Pet.CoordY,
		LostDate:            p.Pet.LostDate,
		CreatedAt:           p.Pet.CreatedAt,
		UpdatedAt:           p.Pet.UpdatedAt,
		Photos:              photos,
	}
}

type matchJSON struct {
	ID              int64     `json:"id"`
	FoundPetID      int64     `json:"found_pet_id"`
	LostPetID       int64     `json:"lost_pet_id"`
	SimilarityScore float64   `json:"similarity_score"`
	CreatedAt       time.Time `json:"created_at"`
}

func toMatchJSON(m petsstorage.Match) matchJSON {
	return matchJSON{
		ID:              m.ID,
		FoundPetID:      m.FoundPetID,
		LostPetID:       m.LostPetID,
		SimilarityScore: m.SimilarityScore,
		CreatedAt:       m.CreatedAt,
	}
}

type messageJSON struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	RecipientID    int64     `json:"recipient_id"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

func toMessageJSON(m chatstorage.Message) messageJSON {
	return messageJSON{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		RecipientID:    m.RecipientID,
		Content:        m.Content,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
}

type conversationJSON struct {
	ID        int64     `json:"id"`
	User1ID   int64     `json:"user1_id"`
	User2ID   int64     `json:"user2_id"`
	PetID     *int64    `json:"pet_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toConversationJSON(c chatstorage.Conversation) conversationJSON {
	return conversationJSON{
		ID:        c.ID,
		User1ID:   c.User1ID,
		User2ID:   c.User2ID,
		PetID:     c.PetID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type conversationSummaryJSON struct {
	Conversation conversationJSON `json:"conversation"`
	LastMessage  *messageJSON     `json:"last_message"`
	UnreadCount  int              `json:"unread_count"`
}

func toConversationSummaryJSON(s chatstorage.ConversationSummary) conversationSummaryJSON {
	out := conversationSummaryJSON{
		Conversation: toConversationJSON(s.Conversation),
		UnreadCount:  s.UnreadCount,
	}
	if s.LastMessage != nil {
		msg := toMessageJSON(*s.LastMessage)
		out.LastMessage = &msg
	}
	return out
}

type notificationJSON struct {
	ID        int64     `json:"id"`
	MatchID   *int64    `json:"match_id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func toNotificationJSON(n notifstorage.Notification) notificationJSON {
	return notificationJSON{
		ID:        n.ID,
		MatchID:   n.MatchID,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}
