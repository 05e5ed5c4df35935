package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nikita-morkovkin/Aniveil/internal/domain"
)

// CatalogRepository exposes the slice of the catalog the pipeline consumes:
// episode lookups plus rendition and duration writes. Broader catalog queries
// belong to other services.
type CatalogRepository struct {
	episodes   *mongo.Collection
	renditions *mongo.Collection
}

type episodeDoc struct {
	ID       string `bson:"_id"`
	AnimeID  string `bson:"animeId"`
	Duration int64  `bson:"duration,omitempty"`
}

type renditionDoc struct {
	ID        string `bson:"_id"`
	EpisodeID string `bson:"episodeId"`
	Quality   string `bson:"quality"`
	FileSize  int64  `bson:"fileSize"`
	HLSURL    string `bson:"hlsUrl"`
	CreatedAt int64  `bson:"createdAt"`
}

func NewCatalogRepository(client *mongo.Client, dbName string) *CatalogRepository {
	db := client.Database(dbName)
	return &CatalogRepository{
		episodes:   db.Collection("episodes"),
		renditions: db.Collection("video_qualities"),
	}
}

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// EnsureIndexes creates the unique episode+quality index that backs the
// idempotent rendition insert.
func (r *CatalogRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.renditions == nil {
		return nil
	}
	_, err := r.renditions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "episodeId", Value: 1}, {Key: "quality", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "episodeId", Value: 1}}},
	})
	return err
}

// GetEpisode returns the episode and its parent anime id.
func (r *CatalogRepository) GetEpisode(ctx context.Context, episodeID string) (domain.EpisodeRef, error) {
	var doc episodeDoc
	if err := r.episodes.FindOne(ctx, bson.M{"_id": episodeID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.EpisodeRef{}, domain.ErrNotFound
		}
		return domain.EpisodeRef{}, err
	}
	return domain.EpisodeRef{ID: doc.ID, AnimeID: doc.AnimeID}, nil
}

// CreateRendition inserts a quality-rendition record. A duplicate for the
// same episode+quality yields domain.ErrAlreadyExists.
func (r *CatalogRepository) CreateRendition(ctx context.Context, record domain.RenditionRecord) error {
	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}
	doc := renditionDoc{
		ID:        id,
		EpisodeID: record.EpisodeID,
		Quality:   string(record.Quality),
		FileSize:  record.FileSize,
		HLSURL:    record.HLSURL,
		CreatedAt: time.Now().UTC().Unix(),
	}
	if _, err := r.renditions.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SetEpisodeDuration stores the probed duration (whole seconds) on the episode.
func (r *CatalogRepository) SetEpisodeDuration(ctx context.Context, episodeID string, seconds int64) error {
	res, err := r.episodes.UpdateOne(
		ctx,
		bson.M{"_id": episodeID},
		bson.M{"$set": bson.M{"duration": seconds}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
