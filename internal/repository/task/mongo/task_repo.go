package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/models/task"
	repo "taskflow/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const collectionName = "tasks"

type taskDocument struct {
	ID            string     `bson:"_id"`
	UserID        string     `bson:"userId"`
	Title         string     `bson:"title"`
	Description   string     `bson:"description"`
	DueDate       *time.Time `bson:"dueDate"`
	HasDueDate    bool       `bson:"hasDueDate"`
	Priority      string     `bson:"priority"`
	PriorityRank  int        `bson:"priorityRank"`
	Category      string     `bson:"category"`
	CategoryLower string     `bson:"categoryLower"`
	Completed     bool       `bson:"completed"`
	CompletedAt   *time.Time `bson:"completedAt"`
	CreatedAt     time.Time  `bson:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt"`
}

func toDocument(t *task.Task) taskDocument {
	return taskDocument{
		ID:            t.ID.String(),
		UserID:        t.UserID.String(),
		Title:         t.Title,
		Description:   t.Description,
		DueDate:       t.DueDate,
		HasDueDate:    t.DueDate != nil,
		Priority:      string(t.Priority),
		PriorityRank:  t.Priority.Rank(),
		Category:      t.Category,
		CategoryLower: strings.ToLower(t.Category),
		Completed:     t.Completed,
		CompletedAt:   t.CompletedAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func (d taskDocument) toTask() (*task.Task, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("task id %q: %w", d.ID, err)
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("task owner %q: %w", d.UserID, err)
	}
	return &task.Task{
		ID:          id,
		UserID:      userID,
		Title:       d.Title,
		Description: d.Description,
		DueDate:     utc(d.DueDate),
		Priority:    task.Priority(d.Priority),
		Category:    d.Category,
		Completed:   d.Completed,
		CompletedAt: utc(d.CompletedAt),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

type TaskStorage struct {
	db   *mongo.Database
	coll *mongo.Collection
	log  *zap.Logger
}

func NewTaskStorage(db *mongo.Database, log *zap.Logger) *TaskStorage {
	return &TaskStorage{
		db:   db,
		coll: db.Collection(collectionName),
		log:  log,
	}
}

func (s *TaskStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "completed", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "dueDate", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("creating task indexes: %w", err)
	}
	return nil
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	if err := s.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	defer logger.WarnIfSlow(s.log, "task.create", time.Now())

	if _, err := s.coll.InsertOne(ctx, toDocument(taskToCreate)); err != nil {
		s.log.Error("Repository: inserting task failed", zap.String("task_id", taskToCreate.ID.String()), zap.Error(err))
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of a task owned by taskToUpdate.UserID.
func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	defer logger.WarnIfSlow(s.log, "task.update", time.Now())

	doc := toDocument(taskToUpdate)
	res, err := s.coll.UpdateOne(ctx, ownerFilter(taskToUpdate.UserID, taskToUpdate.ID), bson.M{"$set": bson.M{
		"title":         doc.Title,
		"description":   doc.Description,
		"dueDate":       doc.DueDate,
		"hasDueDate":    doc.HasDueDate,
		"priority":      doc.Priority,
		"priorityRank":  doc.PriorityRank,
		"category":      doc.Category,
		"categoryLower": doc.CategoryLower,
		"completed":     doc.Completed,
		"completedAt":   doc.CompletedAt,
		"updatedAt":     doc.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, userID, id uuid.UUID) (*task.Task, error) {
	defer logger.WarnIfSlow(s.log, "task.get", time.Now())

	var doc taskDocument
	if err := s.coll.FindOne(ctx, ownerFilter(userID, id)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("getting task: %w", err)
	}
	return doc.toTask()
}

func (s *TaskStorage) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res, err := s.coll.DeleteOne(ctx, ownerFilter(userID, id))
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if res.DeletedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// List returns one page of matches plus the total number of matches
func (s *TaskStorage) List(ctx context.Context, filter task.Filter) ([]*task.Task, int, error) {
	defer logger.WarnIfSlow(s.log, "task.list", time.Now())

	query := toQuery(filter)
	total, err := s.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("counting tasks: %w", err)
	}

	opts := options.Find().SetSort(sortDocument(filter.Sort))
	if filter.Sort.Field == task.SortTitle {
		opts.SetCollation(&options.Collation{Locale: "en", Strength: 2})
	}
	if filter.Limit > 0 {
		opts.SetSkip(int64(filter.Offset())).SetLimit(int64(filter.Limit))
	}

	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		s.log.Error("Repository: listing tasks failed", zap.Error(err))
		return nil, 0, fmt.Errorf("listing tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := []*task.Task{}
	for cursor.Next(ctx) {
		var doc taskDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("decoding task: %w", err)
		}
		t, err := doc.toTask()
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, t)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, int(total), nil
}

func (s *TaskStorage) Count(ctx context.Context, filter task.Filter) (int, error) {
	count, err := s.coll.CountDocuments(ctx, toQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("counting tasks: %w", err)
	}
	return int(count), nil
}

func (s *TaskStorage) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"userId": userID.String()})
	if err != nil {
		return 0, fmt.Errorf("deleting user tasks: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *TaskStorage) DeleteCompleted(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"userId": userID.String(), "completed": true})
	if err != nil {
		return 0, fmt.Errorf("deleting completed tasks: %w", err)
	}
	return res.DeletedCount, nil
}

func ownerFilter(userID, id uuid.UUID) bson.M {
	return bson.M{"_id": id.String(), "userId": userID.String()}
}

func toQuery(f task.Filter) bson.M {
	clauses := bson.A{bson.M{"userId": f.UserID.String()}}

	if f.Completed != nil {
		clauses = append(clauses, bson.M{"completed": *f.Completed})
	}
	if f.Priority != "" {
		clauses = append(clauses, bson.M{"priority": string(f.Priority)})
	}
	if f.Category != "" {
		clauses = append(clauses, bson.M{"categoryLower": strings.ToLower(f.Category)})
	}
	if f.Search != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}
		clauses = append(clauses, bson.M{"$or": bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}})
	}

	due := bson.M{}
	if f.DueFrom != nil {
		due["$gte"] = *f.DueFrom
	}
	if f.DueTo != nil {
		due["$lte"] = *f.DueTo
	}
	if f.DueBefore != nil {
		due["$lt"] = *f.DueBefore
	}
	if len(due) > 0 {
		clauses = append(clauses, bson.M{"dueDate": due})
	}
	if f.DueAfterOrNone != nil {
		clauses = append(clauses, bson.M{"$or": bson.A{
			bson.M{"dueDate": nil},
			bson.M{"dueDate": bson.M{"$gt": *f.DueAfterOrNone}},
		}})
	}

	return bson.M{"$and": clauses}
}

// sortDocument mirrors task.SortTasks: missing due dates go last in both
// directions and ties fall back to insertion order.
func sortDocument(s task.Sort) bson.D {
	dir := 1
	if s.Desc {
		dir = -1
	}

	switch s.Field {
	case task.SortDueDate:
		return bson.D{{Key: "hasDueDate", Value: -1}, {Key: "dueDate", Value: dir}, {Key: "createdAt", Value: 1}}
	case task.SortPriority:
		return bson.D{{Key: "priorityRank", Value: dir}, {Key: "createdAt", Value: 1}}
	case task.SortTitle:
		return bson.D{{Key: "title", Value: dir}, {Key: "createdAt", Value: 1}}
	default:
		return bson.D{{Key: "createdAt", Value: dir}}
	}
}
