package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Building represents a managed property
type Building struct {
	BaseModel

	Name      string `json:"name" db:"name"`
	Address   string `json:"address" db:"address"`
	City      string `json:"city,omitempty" db:"city"`
	UnitCount int    `json:"unitCount" db:"unit_count"`

	ManagerName  string `json:"managerName,omitempty" db:"manager_name"`
	ManagerEmail string `json:"managerEmail,omitempty" db:"manager_email"`

	// Integrations controls forwarding of activity events to external systems
	Integrations *IntegrationSettings `json:"integrations,omitempty" db:"integrations"`
}

// IntegrationSettings configures per-building event forwarding
type IntegrationSettings struct {
	HTTP HTTPIntegration `json:"http"`
	MQTT MQTTIntegration `json:"mqtt"`
}

// HTTPIntegration configures webhook forwarding
type HTTPIntegration struct {
	Enabled  bool              `json:"enabled"`
	Endpoint string            `json:"endpoint,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
}

// MQTTIntegration configures MQTT forwarding
type MQTTIntegration struct {
	Enabled  bool   `json:"enabled"`
	Broker   string `json:"broker,omitempty"`
	Topic    string `json:"topic,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	QoS      byte   `json:"qos,omitempty"`
}

// Value implements driver.Valuer
func (s *IntegrationSettings) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner
func (s *IntegrationSettings) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, s)
	case string:
		return json.Unmarshal([]byte(data), s)
	default:
		return fmt.Errorf("unsupported type for IntegrationSettings: %T", value)
	}
}
