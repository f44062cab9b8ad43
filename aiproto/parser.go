package aiproto

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// An assistant reply may end with one marker-wrapped JSON object:
//
//	free text<!--JSON_DATA:{"data_type":"...",...}-->
var markerRe = regexp.MustCompile(`(?s)<!--JSON_DATA:(.+?)-->`)

// Parse splits an assistant reply into its display text and an optional
// structured payload. A missing marker or a block that fails to decode
// yields a nil payload; the display text is returned either way so a
// corrupt block never hides the reply from the user.
func Parse(reply string) (string, Payload) {
	loc := markerRe.FindStringSubmatchIndex(reply)
	if loc == nil {
		return strings.TrimSpace(reply), nil
	}
	display := strings.TrimSpace(reply[:loc[0]] + reply[loc[1]:])

	payload, err := Decode([]byte(reply[loc[2]:loc[3]]))
	if err != nil {
		return display, nil
	}
	return display, payload
}

// Decode unmarshals one payload object into its tagged variant and
// normalizes it. Unknown data_type values come back as Unrecognized.
func Decode(raw []byte) (Payload, error) {
	var envelope struct {
		DataType string `json:"data_type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("payload envelope: %w", err)
	}
	if envelope.DataType == "" {
		return nil, fmt.Errorf("payload has no data_type")
	}

	switch envelope.DataType {
	case TagRestaurantBatch:
		var p RestaurantBatch
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		NormalizeCandidates(p.Candidates)
		return p, nil
	case TagPOIBatch:
		var p POIBatch
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		NormalizeCandidates(p.Candidates)
		return p, nil
	case TagPOIReplace:
		return decodeReplace(raw)
	case TagScheduleChanged:
		return ScheduleChanged{}, nil
	case TagOptimizedItinerary:
		var p OptimizedItinerary
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		normalizeTree(&p.Itinerary)
		return p, nil
	default:
		return Unrecognized{DataType: envelope.DataType, Raw: append([]byte(nil), raw...)}, nil
	}
}

// poi_replace comes in two shapes: a ready replacement with its target
// position fixed, or a candidate list plus the stop to be replaced.
func decodeReplace(raw []byte) (Payload, error) {
	var probe struct {
		Replacement *Candidate `json:"replacement"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	if probe.Replacement != nil {
		p := ReplaceSingle{Candidate: *probe.Replacement}
		NormalizeCandidate(&p.Candidate)
		return p, nil
	}

	var p ReplaceFromCandidates
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if len(p.Candidates) == 0 {
		return nil, fmt.Errorf("poi_replace carries neither replacement nor recommendations")
	}
	NormalizeCandidates(p.Candidates)
	if p.Target.Day < 1 {
		p.Target.Day = 1
	}
	if p.Target.Order < 1 {
		p.Target.Order = 1
	}
	return p, nil
}

// NormalizeCandidate applies the default policy for missing fields. The
// policy lives here and nowhere else: day and order fall back to 1, a
// coordinates pair fills lat/lng when those are zero, and a restaurant
// label doubles as the type tag.
func NormalizeCandidate(c *Candidate) {
	if c.Day < 1 {
		c.Day = 1
	}
	if c.Order < 1 {
		c.Order = 1
	}
	if len(c.Coordinates) >= 2 && c.Lat == 0 && c.Lng == 0 {
		c.Lat = c.Coordinates[0]
		c.Lng = c.Coordinates[1]
	}
	if c.Type == "" && c.Label != "" {
		c.Type = c.Label
	}
}

// NormalizeCandidates applies the default policy to candidates that
// re-enter the system after a round trip through a client.
func NormalizeCandidates(list []Candidate) {
	for i := range list {
		NormalizeCandidate(&list[i])
	}
}

func normalizeTree(tree *ItineraryTree) {
	for i := range tree.Attractions {
		a := &tree.Attractions[i]
		if a.Day < 1 {
			a.Day = 1
		}
		if a.Order < 1 {
			a.Order = 1
		}
		if a.Day > tree.Days {
			tree.Days = a.Day
		}
	}
}
