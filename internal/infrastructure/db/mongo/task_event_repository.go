package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tasktracker/task-api/internal/core/domain"
)

const taskEventsCollection = "task_events"

type taskEventDocument struct {
	TaskID     int64          `bson:"task_id"`
	UserID     int64          `bson:"user_id"`
	Action     string         `bson:"action"`
	OccurredAt time.Time      `bson:"occurred_at"`
	Changes    map[string]any `bson:"changes,omitempty"`
}

// TaskEventRepository implements ports.TaskEventRepository using an
// append-only MongoDB collection.
type TaskEventRepository struct {
	db *mongo.Database
}

func NewTaskEventRepository(db *mongo.Database) *TaskEventRepository {
	return &TaskEventRepository{db: db}
}

// InsertEvent appends one event to the task_events collection.
func (r *TaskEventRepository) InsertEvent(ctx context.Context, event *domain.TaskEvent) error {
	doc := taskEventDocument{
		TaskID:     event.TaskID,
		UserID:     event.UserID,
		Action:     string(event.Action),
		OccurredAt: event.OccurredAt.UTC(),
		Changes:    event.Changes,
	}
	if _, err := r.db.Collection(taskEventsCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert task event: %w", err)
	}
	return nil
}

// ListByTask returns the task's events oldest first. The user_id filter
// keeps the log scoped to its owner.
func (r *TaskEventRepository) ListByTask(ctx context.Context, userID, taskID int64) ([]domain.TaskEvent, error) {
	filter := bson.M{"user_id": userID, "task_id": taskID}
	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.db.Collection(taskEventsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list task events: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]domain.TaskEvent, 0)
	for cursor.Next(ctx) {
		var doc taskEventDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode task event: %w", err)
		}
		events = append(events, domain.TaskEvent{
			TaskID:     doc.TaskID,
			UserID:     doc.UserID,
			Action:     domain.TaskAction(doc.Action),
			OccurredAt: doc.OccurredAt.UTC(),
			Changes:    doc.Changes,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list task events: %w", err)
	}
	return events, nil
}
