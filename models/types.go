// ABOUTME: Data models for hotel property entities
// ABOUTME: Defines Room, Guest, Booking, Transaction, and Settings structs plus collection names
package models

import "time"

// Collection names. BootstrapOrder is the fixed order the reconciler walks at
// startup; settings comes first so later steps can read property config.
const (
	CollectionSettings     = "settings"
	CollectionRooms        = "rooms"
	CollectionGuests       = "guests"
	CollectionBookings     = "bookings"
	CollectionGroups       = "groups"
	CollectionTransactions = "transactions"
	CollectionStaff        = "staff"
	CollectionMenuItems    = "menu_items"
)

// SettingsID is the fixed id of the singleton settings record.
const SettingsID = "primary"

// BootstrapOrder lists every replicated collection in bootstrap order.
func BootstrapOrder() []string {
	return []string{
		CollectionSettings,
		CollectionRooms,
		CollectionGuests,
		CollectionBookings,
		CollectionGroups,
		CollectionTransactions,
		CollectionStaff,
		CollectionMenuItems,
	}
}

// Room status constants.
const (
	RoomVacant      = "VACANT"
	RoomOccupied    = "OCCUPIED"
	RoomReserved    = "RESERVED"
	RoomMaintenance = "MAINTENANCE"
)

// Booking status constants.
const (
	BookingActive    = "ACTIVE"
	BookingCompleted = "COMPLETED"
	BookingCancelled = "CANCELLED"
	BookingNoShow    = "NO_SHOW"
)

// Transaction kind constants.
const (
	TxnRoomCharge = "ROOM_CHARGE"
	TxnDining     = "DINING"
	TxnBanquet    = "BANQUET"
	TxnPayment    = "PAYMENT"
	TxnRefund     = "REFUND"
)

type Room struct {
	ID       string `json:"id"`
	Number   string `json:"number"`
	Type     string `json:"type"`
	Floor    int    `json:"floor,omitempty"`
	Rate     int64  `json:"rate,omitempty"` // per night, in minor currency units
	Status   string `json:"status"`
	GuestID  string `json:"guest_id,omitempty"`
	Notes    string `json:"notes,omitempty"`
	OutOfUse bool   `json:"out_of_use,omitempty"`
}

type Guest struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone,omitempty"`
	Email     string     `json:"email,omitempty"`
	IDProof   string     `json:"id_proof,omitempty"`
	Address   string     `json:"address,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Payment is embedded in a booking as an opaque blob, never its own row.
type Payment struct {
	Amount int64  `json:"amount"`
	Mode   string `json:"mode"` // cash, card, upi, agent
	At     string `json:"at,omitempty"`
	Ref    string `json:"ref,omitempty"`
}

type Booking struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	GuestID  string    `json:"guest_id"`
	GroupID  string    `json:"group_id,omitempty"`
	CheckIn  string    `json:"check_in"`
	CheckOut string    `json:"check_out,omitempty"`
	Adults   int       `json:"adults,omitempty"`
	Children int       `json:"children,omitempty"`
	Rate     int64     `json:"rate,omitempty"`
	Status   string    `json:"status"`
	Payments []Payment `json:"payments,omitempty"`
	AgentID  string    `json:"agent_id,omitempty"`
	Notes    string    `json:"notes,omitempty"`
}

type BookingGroup struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	RoomIDs  []string `json:"room_ids,omitempty"`
	LeaderID string   `json:"leader_id,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

type Transaction struct {
	ID        string `json:"id"`
	BookingID string `json:"booking_id,omitempty"`
	Kind      string `json:"kind"`
	Amount    int64  `json:"amount"`
	Mode      string `json:"mode,omitempty"`
	Narration string `json:"narration,omitempty"`
	At        string `json:"at,omitempty"`
}

type StaffMember struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Salary int64  `json:"salary,omitempty"`
	Active bool   `json:"active"`
}

type MenuItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Price    int64  `json:"price"`
	InStock  bool   `json:"in_stock"`
}

// RoomType describes one entry in the property's room-type catalog.
type RoomType struct {
	Name string `json:"name"`
	Rate int64  `json:"rate"`
}

// Agent is a booking channel/agent in the property catalog.
type Agent struct {
	Name       string  `json:"name"`
	Commission float64 `json:"commission,omitempty"`
}

// Settings is the singleton property-wide configuration record (id "primary").
type Settings struct {
	ID           string     `json:"id"`
	PropertyName string     `json:"property_name,omitempty"`
	TaxRate      float64    `json:"tax_rate,omitempty"`
	Currency     string     `json:"currency,omitempty"`
	RoomTypes    []RoomType `json:"room_types,omitempty"`
	Agents       []Agent    `json:"agents,omitempty"`
	APIKey       string     `json:"api_key,omitempty"` // guards the external REST facade
}
