package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"deal_room/internal/config"
	"deal_room/pkg/logger"

	"github.com/google/uuid"
	"github.com/livekit/protocol/auth"
)

// CallToken - доступ к медиа-комнате LiveKit текущего звонка
type CallToken struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	Room      string    `json:"room"`
	CallID    uuid.UUID `json:"call_id"`
	ExpiresIn int       `json:"expires_in"`
}

type MediaService interface {
	GetCallToken(ctx context.Context, roomID uuid.UUID, userID, displayName string) (*CallToken, error)
}

type mediaService struct {
	rooms DealRoomService
	calls CallService
	cfg   config.LiveKitConfig
	log   logger.Logger
}

func NewMediaService(rooms DealRoomService, calls CallService, cfg config.LiveKitConfig, log logger.Logger) MediaService {
	return &mediaService{
		rooms: rooms,
		calls: calls,
		cfg:   cfg,
		log:   log,
	}
}

func mediaRoomName(roomID, callID uuid.UUID) string {
	return fmt.Sprintf("dealroom-%s-%s", roomID, callID)
}

// GetCallToken выдает токен со сроком действия не дольше оставшегося времени звонка
func (s *mediaService) GetCallToken(ctx context.Context, roomID uuid.UUID, userID, displayName string) (*CallToken, error) {
	if err := s.rooms.CanUserAccessDealRoom(ctx, roomID, userID); err != nil {
		return nil, err
	}

	session, err := s.calls.JoinCall(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}

	remaining := session.MaxDuration - session.Duration
	if remaining <= 0 {
		remaining = 1
	}

	room := mediaRoomName(roomID, session.ID)
	at := auth.NewAccessToken(s.cfg.APIKey, s.cfg.APISecret)
	canPublish := true
	canSubscribe := true
	grant := &auth.VideoGrant{
		RoomJoin:     true,
		Room:         room,
		CanPublish:   &canPublish,
		CanSubscribe: &canSubscribe,
	}

	at.AddGrant(grant).
		SetIdentity(userID).
		SetName(displayName).
		SetValidFor(time.Duration(remaining) * time.Second)

	token, err := at.ToJWT()
	if err != nil {
		s.log.Error("Failed to generate LiveKit token", "room_id", roomID, "error", err)
		return nil, errors.New("failed to generate token")
	}

	return &CallToken{
		Token:     token,
		URL:       s.publicURL(),
		Room:      room,
		CallID:    session.ID,
		ExpiresIn: remaining,
	}, nil
}

// publicURL - адрес LiveKit для браузера: FrontendURL, иначе URL с заменой docker-имени хоста
func (s *mediaService) publicURL() string {
	url := s.cfg.FrontendURL
	if url == "" {
		url = s.cfg.URL
	}
	if url == "" {
		url = "ws://localhost:7880"
	}

	url = strings.Replace(url, "livekit:7880", "localhost:7880", 1)
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	case !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://"):
		url = "ws://" + url
	}
	return url
}
