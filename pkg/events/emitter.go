// Package events handles event emission for match run lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter handles event emission for Clover
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitRunCompleted emits an event when a match run finishes
func (e *Emitter) EmitRunCompleted(ctx context.Context, run *models.MatchRun) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRunCompleted")
	defer span.End()

	data := map[string]any{
		"schema_version": SchemaVersion,
		"left_name":      run.LeftName,
		"right_name":     run.RightName,
		"left_count":     run.LeftCount,
		"right_count":    run.RightCount,
		"pair_count":     run.PairCount,
		"group_count":    run.GroupCount,
		"threshold":      run.Threshold,
	}
	dataJSON, _ := json.Marshal(data)

	event := &kafka.MatchEvent{
		EventType: "match.run.completed",
		TenantID:  run.TenantID,
		RunID:     run.ID,
		Mode:      run.Mode,
		Data:      dataJSON,
	}

	if err := e.producer.PublishMatchEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit match.run.completed event")
		return err
	}

	return nil
}

// EmitGroupsFormed emits one event per duplicate group found in a dedupe run
func (e *Emitter) EmitGroupsFormed(ctx context.Context, run *models.MatchRun, groups map[string][]string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitGroupsFormed")
	defer span.End()

	if len(groups) == 0 {
		return nil
	}

	events := make([]*kafka.MatchEvent, 0, len(groups))
	for groupID, members := range groups {
		data := map[string]any{
			"schema_version": SchemaVersion,
			"group_id":       groupID,
			"member_count":   len(members),
			"members":        members,
		}
		dataJSON, _ := json.Marshal(data)

		events = append(events, &kafka.MatchEvent{
			EventType: "match.group.formed",
			TenantID:  run.TenantID,
			RunID:     run.ID,
			Mode:      run.Mode,
			Data:      dataJSON,
		})
	}

	if err := e.producer.PublishMatchEvents(ctx, events); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit match.group.formed events")
		return err
	}

	return nil
}
