package core

import "time"

// MessageTypeBroadcast marks an artifact sent to the whole room.
const MessageTypeBroadcast = "broadcast"

// EventTypeAudio is the event type pushed to connected sessions for a new clip.
const EventTypeAudio = "audio_message"

// AudioMessage is one recorded clip. It is immutable after it has been stored.
type AudioMessage struct {
	ID            string    `json:"id"`
	TokenID       int64     `json:"nft_token_id"`
	WalletAddress string    `json:"wallet_address"`
	AudioData     string    `json:"audio_data"` // base64 as sent by the client
	Duration      float64   `json:"duration"`
	Timestamp     time.Time `json:"timestamp"`
	MessageType   string    `json:"message_type"`
}

// Validate reports whether the message can be broadcast.
func (m *AudioMessage) Validate() error {
	if m == nil || m.ID == "" || m.AudioData == "" || m.Duration <= 0 {
		return ErrInvalidAudio
	}
	return nil
}

// Profile is the read model kept per NFT token id.
type Profile struct {
	WalletAddress      string    `json:"wallet_address"`
	TokenID            int64     `json:"nft_token_id"`
	TotalMessagesSent  int64     `json:"total_messages_sent"`
	TotalMessagesRecvd int64     `json:"total_messages_received"`
	FirstLogin         time.Time `json:"first_login"`
	LastActive         time.Time `json:"last_active"`
	LifetimeRecordings []string  `json:"lifetime_recordings"`
}

// Event is a frame pushed to a live session.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Stats summarises the community.
type Stats struct {
	TotalRegisteredNFTs int64 `json:"total_registered_nfts"`
	TotalMessagesSent   int64 `json:"total_messages_sent"`
	CurrentlyOnline     int   `json:"currently_online"`
	CollectionSize      int   `json:"collection_size"`
}
