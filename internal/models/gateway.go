package models

import (
	"time"

	"github.com/google/uuid"
)

// GatewayStatus represents a gateway's connectivity status
type GatewayStatus string

const (
	GatewayStatusOnline  GatewayStatus = "online"
	GatewayStatusOffline GatewayStatus = "offline"
)

// Valid reports whether the gateway status is a known value
func (s GatewayStatus) Valid() bool {
	return s == GatewayStatusOnline || s == GatewayStatusOffline
}

// Gateway represents a network bridge relaying commands between
// the cloud service and one or more locks
type Gateway struct {
	BaseModel

	// GatewayID is the vendor-assigned gateway identifier
	GatewayID int64  `json:"gatewayId" db:"gateway_id"`
	Name      string `json:"name" db:"name"`
	MAC       string `json:"mac,omitempty" db:"mac"`

	BuildingID *uuid.UUID `json:"buildingId,omitempty" db:"building_id"`

	Status GatewayStatus `json:"status" db:"status"`

	NetworkName string `json:"networkName,omitempty" db:"network_name"`
	IPAddress   string `json:"ipAddress,omitempty" db:"ip_address"`

	LockCount int `json:"lockCount" db:"lock_count"`

	LastSeenAt   *time.Time `json:"lastSeenAt,omitempty" db:"last_seen_at"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty" db:"last_synced_at"`
}
