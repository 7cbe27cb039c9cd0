// Package sse streams in-app notifications to connected studio clients.
package sse

import (
	"encoding/json"
	"sync"

	"studio_portal_backend/platform/httpkit"
	"studio_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EventType string

const (
	EventInAppNotification EventType = "in_app_notification"
	EventQuoteApproved     EventType = "quote_approved"
)

type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data,omitempty"`
}

type client struct {
	studioID uuid.UUID
	events   chan Event
}

// Service fans events out to every open stream of a studio.
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client
	log     *logger.Logger
}

func New(log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		clients: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.studioID] = append(s.clients[c.studioID], c)
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.studioID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.studioID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(s.clients[c.studioID]) == 0 {
		delete(s.clients, c.studioID)
	}
}

// Subscribe opens a stream for studioID. The returned func closes it.
func (s *Service) Subscribe(studioID uuid.UUID) (<-chan Event, func()) {
	cl := &client{studioID: studioID, events: make(chan Event, 32)}
	s.addClient(cl)
	return cl.events, func() { s.removeClient(cl) }
}

// Clients reports the number of open streams for a studio.
func (s *Service) Clients(studioID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[studioID])
}

// Publish sends event to every stream of studioID. Slow clients drop events
// rather than block the publisher.
func (s *Service) Publish(studioID uuid.UUID, event Event) {
	s.mu.RLock()
	clients := append([]*client(nil), s.clients[studioID]...)
	s.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse event buffer full", "studioId", studioID, "type", event.Type)
		}
	}
	s.log.Debug("sse event published", "studioId", studioID, "type", event.Type, "clients", len(clients))
}

// Handler serves GET /notifications/stream for the studio in scope.
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		studioID, ok := httpkit.MustGetStudioID(c)
		if !ok {
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		stream, unsubscribe := s.Subscribe(studioID)
		defer unsubscribe()

		c.SSEvent("connected", gin.H{"studioId": studioID})
		c.Writer.Flush()

		done := c.Request.Context().Done()
		for {
			select {
			case <-done:
				return
			case event := <-stream:
				data, err := json.Marshal(event)
				if err != nil {
					s.log.Warn("sse marshal failed", "type", event.Type, "error", err)
					continue
				}
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}
