package domain

import (
	"time"
)

// Community is an administratively defined rectangular region used to
// localize matching.
type Community struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Bounds    BoundingBox `json:"bounds"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
}

// Center returns the midpoint of the community bounding box.
func (c Community) Center() Point {
	return c.Bounds.Center()
}

// Candidate is an open service request eligible for distance ranking.
// Location and CommunityID are both optional.
type Candidate struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Title       string    `json:"title"`
	ServiceType string    `json:"service_type,omitempty"`
	Reward      float64   `json:"reward"`
	Location    *Point    `json:"location,omitempty"`
	CommunityID *int64    `json:"community_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// InCommunity reports whether the candidate belongs to the given community.
func (c Candidate) InCommunity(id int64) bool {
	return c.CommunityID != nil && *c.CommunityID == id
}

// LocationSource tags where an effective location came from.
type LocationSource string

const (
	SourceOwnPoint        LocationSource = "own_point"
	SourceCommunityCenter LocationSource = "community_center"
)

// EffectiveLocation is the point used for distance computation: the
// candidate's own coordinates, or else its community's center.
type EffectiveLocation struct {
	Source      LocationSource `json:"source"`
	Point       Point          `json:"point"`
	CommunityID int64          `json:"community_id,omitempty"` // set for SourceCommunityCenter
}

// Segment identifies which part of a community-first feed a match belongs to.
type Segment string

const (
	SegmentInCommunity Segment = "in_community"
	SegmentNearby      Segment = "nearby"
)

// MatchResult is a candidate with its computed distance from the requester.
type MatchResult struct {
	Candidate  Candidate      `json:"candidate"`
	DistanceKm float64        `json:"distance_km"`
	Source     LocationSource `json:"location_source"`
	Segment    Segment        `json:"segment,omitempty"`
}

// Requester is the party browsing for nearby services.
type Requester struct {
	Point       Point  `json:"point"`
	CommunityID *int64 `json:"community_id,omitempty"`
}

// UserLocation is the stored location and home community of a user.
type UserLocation struct {
	UserID      int64  `json:"user_id"`
	Location    *Point `json:"location,omitempty"`
	CommunityID *int64 `json:"community_id,omitempty"`
}

// SubjectKind is the type of entity assigned to a community.
type SubjectKind string

const (
	SubjectOrder SubjectKind = "order"
	SubjectUser  SubjectKind = "user"
)

// AssignmentEvent records a change in community membership.
type AssignmentEvent struct {
	ID                  string      `json:"id"`
	Kind                SubjectKind `json:"kind"`
	SubjectID           int64       `json:"subject_id"`
	PreviousCommunityID *int64      `json:"previous_community_id,omitempty"`
	CommunityID         *int64      `json:"community_id,omitempty"`
	Time                time.Time   `json:"time"`
}

// AssignmentOutcome describes what an assignment call did.
type AssignmentOutcome string

const (
	OutcomeAssigned  AssignmentOutcome = "assigned"
	OutcomeUnchanged AssignmentOutcome = "unchanged"
	OutcomeSkipped   AssignmentOutcome = "skipped" // no location to resolve
)
