package models

import (
	"strings"
	"time"
)

// Itinerary is the owning trip. Days is derived from the stops and is
// recomputed after any mutation that can change the day set.
type Itinerary struct {
	ItineraryID string    `json:"itineraryid" bson:"itineraryid"`
	UserID      string    `json:"user_id" bson:"user_id"`
	Title       string    `json:"title" bson:"title"`
	Location    string    `json:"location" bson:"location"`
	Days        int       `json:"days" bson:"days"`
	Published   bool      `json:"published" bson:"published"`
	CopiedFrom  *string   `json:"copied_from,omitempty" bson:"copied_from,omitempty"`
	Deleted     bool      `json:"-" bson:"deleted,omitempty"` // Internal use only
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// Place is a deduplicated point-of-interest record. Places are created the
// first time a stop references them and are never deleted; POIID is the
// unique external identifier used for dedup.
type Place struct {
	PlaceID   string  `json:"placeid" bson:"placeid"`
	POIID     string  `json:"poi_id" bson:"poi_id"`
	Name      string  `json:"name" bson:"name"`
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
	Address   string  `json:"address" bson:"address"`
	Area      string  `json:"area,omitempty" bson:"area,omitempty"`
	Tel       string  `json:"tel,omitempty" bson:"tel,omitempty"`
	Website   string  `json:"website,omitempty" bson:"website,omitempty"`
	Category  string  `json:"category,omitempty" bson:"category,omitempty"`
	Photos    string  `json:"photos,omitempty" bson:"photos,omitempty"`
}

// Stop categories, derived from the referenced place's category description.
const (
	StopTypeAttraction = "attraction"
	StopTypeRestaurant = "restaurant"
	StopTypeLodging    = "lodging"
)

// Stop is one scheduled visit within an itinerary day. Visit orders within
// a day are always exactly 1..count.
type Stop struct {
	StopID      string `json:"stopid" bson:"stopid"`
	ItineraryID string `json:"itineraryid" bson:"itineraryid"`
	PlaceID     string `json:"placeid" bson:"placeid"`
	Day         int    `json:"day" bson:"day"`
	Order       int    `json:"order" bson:"order"`
	Name        string `json:"name" bson:"name"`
	Transport   string `json:"transport,omitempty" bson:"transport,omitempty"`
	Type        string `json:"type" bson:"type"`
	AIPicked    bool   `json:"ai_picked" bson:"ai_picked"`
	AIReason    string `json:"ai_reason,omitempty" bson:"ai_reason,omitempty"`
}

// User is an account record. Password holds the bcrypt hash.
type User struct {
	UserID        string    `json:"userid" bson:"userid"`
	Username      string    `json:"username" bson:"username"`
	Password      string    `json:"password,omitempty" bson:"password"`
	Role          []string  `json:"role,omitempty" bson:"role,omitempty"`
	RefreshToken  string    `json:"-" bson:"refresh_token,omitempty"`
	RefreshExpiry time.Time `json:"-" bson:"refresh_expiry,omitempty"`
	LastLogin     time.Time `json:"-" bson:"last_login,omitempty"`
}

// DeriveStopType maps a place category description onto a stop category.
func DeriveStopType(category string) string {
	switch {
	case containsAny(category, "restaurant", "food", "dining", "餐饮"):
		return StopTypeRestaurant
	case containsAny(category, "hotel", "lodging", "accommodation", "住宿"):
		return StopTypeLodging
	default:
		return StopTypeAttraction
	}
}

func containsAny(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if sub != "" && strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
