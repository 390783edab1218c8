// Package integration forwards lock activity events to per-building
// external systems over HTTP webhooks and MQTT.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/lockmaster/lockmaster-server/internal/models"
	"github.com/lockmaster/lockmaster-server/internal/storage"
)

// ForwarderService relays lock events to building integrations
type ForwarderService struct {
	nc    *nats.Conn
	store storage.Store

	// One MQTT client per building with MQTT forwarding enabled
	mqttClients map[uuid.UUID]mqtt.Client
	clientsMu   sync.RWMutex

	httpClient *http.Client
}

// NewForwarderService creates a forwarder service
func NewForwarderService(nc *nats.Conn, store storage.Store) *ForwarderService {
	return &ForwarderService{
		nc:          nc,
		store:       store,
		mqttClients: make(map[uuid.UUID]mqtt.Client),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Start subscribes to lock events and blocks until the context ends
func (s *ForwarderService) Start(ctx context.Context) error {
	sub, err := s.nc.Subscribe("building.*.lock.*.event", s.handleLockEvent)
	if err != nil {
		return fmt.Errorf("subscribe to lock events: %w", err)
	}

	log.Info().Msg("Integration forwarder service started")

	<-ctx.Done()

	sub.Unsubscribe()
	s.closeAllMQTTConnections()

	return nil
}

// forwardedEvent is the payload delivered to integrations
type forwardedEvent struct {
	BuildingID   string      `json:"buildingId"`
	BuildingName string      `json:"buildingName"`
	LockID       int64       `json:"lockId"`
	EventType    string      `json:"eventType"`
	UserID       string      `json:"userId,omitempty"`
	Method       string      `json:"method,omitempty"`
	Success      bool        `json:"success"`
	Details      string      `json:"details,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Raw          interface{} `json:"raw,omitempty"`
}

// handleLockEvent resolves the building and fans out to its integrations
func (s *ForwarderService) handleLockEvent(msg *nats.Msg) {
	// Subject is building.<building_id>.lock.<lock_id>.event
	parts := strings.Split(msg.Subject, ".")
	if len(parts) != 5 {
		return
	}

	buildingID, err := uuid.Parse(parts[1])
	if err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("Invalid building ID in subject")
		return
	}

	ctx := context.Background()
	building, err := s.store.GetBuilding(ctx, buildingID)
	if err != nil {
		log.Error().Err(err).Str("buildingId", buildingID.String()).Msg("Failed to get building")
		return
	}

	if building.Integrations == nil {
		return
	}

	var raw struct {
		LockID    int64  `json:"lockId"`
		EventType string `json:"eventType"`
		UserID    string `json:"userId,omitempty"`
		Method    string `json:"method,omitempty"`
		Success   bool   `json:"success"`
		Details   string `json:"details,omitempty"`
	}
	if err := json.Unmarshal(msg.Data, &raw); err != nil {
		log.Error().Err(err).Msg("Failed to parse lock event")
		return
	}

	event := forwardedEvent{
		BuildingID:   building.ID.String(),
		BuildingName: building.Name,
		LockID:       raw.LockID,
		EventType:    raw.EventType,
		UserID:       raw.UserID,
		Method:       raw.Method,
		Success:      raw.Success,
		Details:      raw.Details,
		Timestamp:    time.Now(),
	}

	if building.Integrations.HTTP.Enabled {
		go s.forwardToHTTP(building, event)
	}

	if building.Integrations.MQTT.Enabled {
		go s.forwardToMQTT(building, event)
	}
}

// forwardToHTTP posts the event to the building's webhook
func (s *ForwarderService) forwardToHTTP(building *models.Building, event forwardedEvent) {
	config := building.Integrations.HTTP
	if config.Endpoint == "" {
		return
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal forward data")
		return
	}

	req, err := http.NewRequest("POST", config.Endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		log.Error().Err(err).Msg("Failed to create HTTP request")
		return
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Error().
			Err(err).
			Str("endpoint", config.Endpoint).
			Msg("Failed to forward event to HTTP")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Error().
			Int("status", resp.StatusCode).
			Str("endpoint", config.Endpoint).
			Msg("HTTP forward failed")
	} else {
		log.Debug().
			Int64("lockId", event.LockID).
			Str("endpoint", config.Endpoint).
			Msg("Event forwarded to HTTP")
	}
}

// forwardToMQTT publishes the event on the building's broker
func (s *ForwarderService) forwardToMQTT(building *models.Building, event forwardedEvent) {
	config := building.Integrations.MQTT
	if config.Broker == "" {
		return
	}

	client := s.getMQTTClient(building.ID)
	if client == nil {
		client = s.createMQTTClient(building.ID, &config)
		if client == nil {
			return
		}
	}

	topic := config.Topic
	if topic == "" {
		topic = fmt.Sprintf("lockmaster/%s/events", building.ID)
	}
	topic = strings.ReplaceAll(topic, "{building_id}", building.ID.String())
	topic = strings.ReplaceAll(topic, "{lock_id}", fmt.Sprintf("%d", event.LockID))

	jsonData, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal MQTT data")
		return
	}

	token := client.Publish(topic, config.QoS, false, jsonData)
	if token.WaitTimeout(5 * time.Second) {
		if err := token.Error(); err != nil {
			log.Error().
				Err(err).
				Str("topic", topic).
				Msg("Failed to publish to MQTT")
		} else {
			log.Debug().
				Int64("lockId", event.LockID).
				Str("topic", topic).
				Msg("Event forwarded to MQTT")
		}
	} else {
		log.Error().
			Str("topic", topic).
			Msg("MQTT publish timeout")
	}
}

// getMQTTClient returns a live client for the building, nil when absent
func (s *ForwarderService) getMQTTClient(buildingID uuid.UUID) mqtt.Client {
	s.clientsMu.RLock()
	client, exists := s.mqttClients[buildingID]
	s.clientsMu.RUnlock()

	if exists && client.IsConnected() {
		return client
	}

	return nil
}

// createMQTTClient connects a client for the building's broker
func (s *ForwarderService) createMQTTClient(buildingID uuid.UUID, config *models.MQTTIntegration) mqtt.Client {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(fmt.Sprintf("lockmaster-building-%s", buildingID))

	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info().
			Str("buildingId", buildingID.String()).
			Msg("MQTT client connected")
	})

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Error().
			Err(err).
			Str("buildingId", buildingID.String()).
			Msg("MQTT connection lost")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()

	if token.WaitTimeout(10*time.Second) && token.Error() == nil {
		s.clientsMu.Lock()
		s.mqttClients[buildingID] = client
		s.clientsMu.Unlock()
		return client
	}

	log.Error().
		Err(token.Error()).
		Str("buildingId", buildingID.String()).
		Msg("Failed to connect MQTT client")

	return nil
}

// closeAllMQTTConnections disconnects and drops every client
func (s *ForwarderService) closeAllMQTTConnections() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for buildingID, client := range s.mqttClients {
		if client.IsConnected() {
			client.Disconnect(250)
		}
		delete(s.mqttClients, buildingID)

		log.Info().
			Str("buildingId", buildingID.String()).
			Msg("MQTT client disconnected")
	}
}
