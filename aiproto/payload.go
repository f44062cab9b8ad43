package aiproto

import "encoding/json"

// Wire tags carried in the data_type field of an assistant payload.
const (
	TagRestaurantBatch    = "restaurant_recommendations"
	TagPOIBatch           = "poi_recommendations"
	TagPOIReplace         = "poi_replace"
	TagScheduleChanged    = "itinerary_update"
	TagOptimizedItinerary = "optimized_itinerary"
)

// Payload is one decoded assistant payload. Exactly one concrete type per
// known data_type, plus Unrecognized for tags this build does not know.
type Payload interface {
	Tag() string
}

// Candidate is one recommended place. Restaurant payloads put the cuisine
// in label, a price hint in price and the position in a coordinates pair;
// normalization folds those into the shared fields.
type Candidate struct {
	UID         string    `json:"uid"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Rating      float64   `json:"rating"`
	Reason      string    `json:"recommendation_reason"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Address     string    `json:"address"`
	Tel         string    `json:"tel"`
	Day         int       `json:"day"`
	Order       int       `json:"order"`
	Label       string    `json:"label"`
	Price       string    `json:"price"`
	Coordinates []float64 `json:"coordinates"`
}

// ReplaceTarget names the stop a poi_replace payload wants swapped out.
type ReplaceTarget struct {
	Name  string `json:"name"`
	Day   int    `json:"day"`
	Order int    `json:"order"`
}

// Attraction is one entry of a full optimized itinerary tree.
type Attraction struct {
	UID     string  `json:"uid"`
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Day     int     `json:"day"`
	Order   int     `json:"order"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
	Tel     string  `json:"tel"`
	Reason  string  `json:"recommendation_reason"`
}

// ItineraryTree is the full replacement schedule of an
// optimized_itinerary payload.
type ItineraryTree struct {
	Days        int          `json:"days"`
	Attractions []Attraction `json:"attractions"`
}

type RestaurantBatch struct {
	Candidates []Candidate `json:"recommendations"`
}

func (RestaurantBatch) Tag() string { return TagRestaurantBatch }

type POIBatch struct {
	Candidates []Candidate `json:"recommendations"`
}

func (POIBatch) Tag() string { return TagPOIBatch }

// ReplaceSingle carries one candidate with its target day and order
// already fixed by the assistant.
type ReplaceSingle struct {
	Candidate Candidate `json:"replacement"`
}

func (ReplaceSingle) Tag() string { return TagPOIReplace }

// ReplaceFromCandidates names a stop to replace and offers candidates for
// the user to pick from.
type ReplaceFromCandidates struct {
	Target     ReplaceTarget `json:"replace_poi_info"`
	Candidates []Candidate   `json:"recommendations"`
}

func (ReplaceFromCandidates) Tag() string { return TagPOIReplace }

// ScheduleChanged signals that the remote side already persisted a change
// and the schedule should simply be reloaded.
type ScheduleChanged struct{}

func (ScheduleChanged) Tag() string { return TagScheduleChanged }

type OptimizedItinerary struct {
	Itinerary ItineraryTree `json:"itinerary"`
}

func (OptimizedItinerary) Tag() string { return TagOptimizedItinerary }

// Unrecognized preserves a payload whose data_type this build does not
// handle. Callers ignore it.
type Unrecognized struct {
	DataType string
	Raw      json.RawMessage
}

func (u Unrecognized) Tag() string { return u.DataType }
