package models

import (
	"strings"
	"time"
)

// TrackingStage is the production-stage vocabulary used by tracking events.
// It is richer than OrderStatus: every status has a stage of the same name,
// and the production floor adds stages that do not change the order status.
type TrackingStage string

const (
	StageOrderPlaced    TrackingStage = "order_placed"
	StageApproved       TrackingStage = "approved"
	StageRejected       TrackingStage = "rejected"
	StageProcessing     TrackingStage = "processing"
	StageInProduction   TrackingStage = "in_production"
	StageCutting        TrackingStage = "cutting"
	StageSewing         TrackingStage = "sewing"
	StageFinishing      TrackingStage = "finishing"
	StageQualityCheck   TrackingStage = "quality_check"
	StagePacked         TrackingStage = "packed"
	StageShipped        TrackingStage = "shipped"
	StageOutForDelivery TrackingStage = "out_for_delivery"
	StageDelivered      TrackingStage = "delivered"
	StageCancelled      TrackingStage = "cancelled"
)

// ProductionStages are the floor stages recorded without a status change
var ProductionStages = []TrackingStage{
	StageCutting,
	StageSewing,
	StageFinishing,
	StageQualityCheck,
}

// IsProductionStage reports whether s is a floor-level production stage
func (s TrackingStage) IsProductionStage() bool {
	for _, stage := range ProductionStages {
		if s == stage {
			return true
		}
	}
	return false
}

// ParseProductionStage normalizes a production stage string. "qc" is
// accepted as an alias of quality_check.
func ParseProductionStage(s string) (TrackingStage, bool) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if normalized == "qc" {
		return StageQualityCheck, true
	}

	stage := TrackingStage(normalized)
	return stage, stage.IsProductionStage()
}

// StageForStatus returns the tracking stage recorded when an order enters status
func StageForStatus(status OrderStatus) TrackingStage {
	return TrackingStage(status)
}

// TrackingEvent is one append-only record in an order's tracking log
type TrackingEvent struct {
	ID        int64         `db:"id" json:"id"`
	OrderID   string        `db:"order_id" json:"order_id"`
	Stage     TrackingStage `db:"status" json:"status"`
	Note      *string       `db:"note" json:"note,omitempty"`
	Location  *string       `db:"location" json:"location,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"timestamp"`
}

// NewTrackingEvent creates an unsaved tracking event
func NewTrackingEvent(orderID string, stage TrackingStage, note, location string, at time.Time) *TrackingEvent {
	return &TrackingEvent{
		OrderID:   orderID,
		Stage:     stage,
		Note:      StringPtr(strings.TrimSpace(note)),
		Location:  StringPtr(strings.TrimSpace(location)),
		CreatedAt: at,
	}
}
