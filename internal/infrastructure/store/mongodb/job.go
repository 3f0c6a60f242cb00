package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
	"github.com/RS-labhub/devcontainer-generator/internal/domain/repository"
	"github.com/RS-labhub/devcontainer-generator/internal/infrastructure/metrics"
)

const jobCollection = "jobs"

type MongoJobRepo struct {
	coll *mongo.Collection
}

var _ repository.JobRepository = (*MongoJobRepo)(nil)

func NewMongoJobRepo(db *mongo.Database) (*MongoJobRepo, error) {
	coll := db.Collection(jobCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("create job indexes: %w", err)
	}

	return &MongoJobRepo{coll: coll}, nil
}

func (r *MongoJobRepo) Create(ctx context.Context, job *entity.Job) error {
	_, err := r.coll.InsertOne(ctx, job)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	metrics.IncDBOp("insert")
	metrics.IncJobsCreated()
	return nil
}

func (r *MongoJobRepo) GetByID(ctx context.Context, id string) (*entity.Job, error) {
	var job entity.Job
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&job)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("job %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("find job: %w", err)
	}
	metrics.IncDBOp("find")
	return &job, nil
}

func (r *MongoJobRepo) List(ctx context.Context) ([]*entity.Job, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoJobRepo) ListByStatus(ctx context.Context, status entity.JobStatus) ([]*entity.Job, error) {
	return r.find(ctx, bson.M{"status": status})
}

func (r *MongoJobRepo) find(ctx context.Context, filter bson.M) ([]*entity.Job, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find jobs: %w", err)
	}
	defer cursor.Close(ctx)

	jobs := make([]*entity.Job, 0)
	for cursor.Next(ctx) {
		var job entity.Job
		if err := cursor.Decode(&job); err != nil {
			return nil, fmt.Errorf("decode job: %w", err)
		}
		jobs = append(jobs, &job)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	metrics.IncDBOp("find")
	return jobs, nil
}

func (r *MongoJobRepo) UpdateStatus(ctx context.Context, id string, status entity.JobStatus) error {
	update := bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("job %s: %w", id, repository.ErrNotFound)
	}
	metrics.IncDBOp("update")
	return nil
}

func (r *MongoJobRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	update := bson.M{"$set": bson.M{
		"status":     entity.JobStatusFailed,
		"error":      errMsg,
		"updated_at": time.Now().UTC(),
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("job %s: %w", id, repository.ErrNotFound)
	}
	metrics.IncDBOp("update")
	return nil
}

func (r *MongoJobRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("job %s: %w", id, repository.ErrNotFound)
	}
	metrics.IncDBOp("delete")
	return nil
}

func (r *MongoJobRepo) CountByStatus(ctx context.Context, status entity.JobStatus) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"status": status})
	if err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return int(n), nil
}
