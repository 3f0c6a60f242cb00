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

const artifactCollection = "artifacts"

type MongoArtifactRepo struct {
	coll *mongo.Collection
}

var _ repository.ArtifactRepository = (*MongoArtifactRepo)(nil)

func NewMongoArtifactRepo(db *mongo.Database) (*MongoArtifactRepo, error) {
	coll := db.Collection(artifactCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "jobid", Value: 1}}},
		{Keys: bson.D{{Key: "url", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("create artifact indexes: %w", err)
	}

	return &MongoArtifactRepo{coll: coll}, nil
}

func (r *MongoArtifactRepo) Save(ctx context.Context, artifact *entity.Artifact) (*entity.Artifact, error) {
	_, err := r.coll.InsertOne(ctx, artifact)
	if err != nil {
		return nil, fmt.Errorf("insert artifact: %w", err)
	}
	metrics.IncDBOp("insert")
	return artifact, nil
}

func (r *MongoArtifactRepo) GetByJobID(ctx context.Context, jobID string) (*entity.Artifact, error) {
	var artifact entity.Artifact
	err := r.coll.FindOne(ctx, bson.M{"jobid": jobID}).Decode(&artifact)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("find artifact: %w", err)
	}
	metrics.IncDBOp("find")
	return &artifact, nil
}

func (r *MongoArtifactRepo) ListByURL(ctx context.Context, repoURL string) ([]*entity.Artifact, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"url": repoURL}, opts)
	if err != nil {
		return nil, fmt.Errorf("find artifacts: %w", err)
	}
	defer cursor.Close(ctx)

	artifacts := make([]*entity.Artifact, 0)
	for cursor.Next(ctx) {
		var artifact entity.Artifact
		if err := cursor.Decode(&artifact); err != nil {
			return nil, fmt.Errorf("decode artifact: %w", err)
		}
		artifacts = append(artifacts, &artifact)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	metrics.IncDBOp("find")
	return artifacts, nil
}
