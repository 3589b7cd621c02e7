package mongostore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mlutsenko/askpage/pkg/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config holds the embeddings collection configuration.
type Config struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// Store holds the connection to the embeddings collection. It is
// opened once per session; the pipeline treats it as opaque storage.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// ChunkRecord is one persisted chunk with its vector. A run groups
// all records written by a single pipeline execution.
type ChunkRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	RunID      string             `bson:"run_id"`
	DocumentID string             `bson:"document_id"`
	SourceURL  string             `bson:"source_url"`
	Order      int                `bson:"order"`
	Text       string             `bson:"text"`
	TokenCount int                `bson:"token_count,omitempty"`
	Vector     []float32          `bson:"vector,omitempty"`
	Model      string             `bson:"model,omitempty"`
	CreatedAt  time.Time          `bson:"created_at"`
}

// Connect opens a client and verifies the server is reachable.
func Connect(ctx context.Context, config Config) (*Store, error) {
	if config.URI == "" {
		return nil, fmt.Errorf("mongo URI is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	return &Store{
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
	}, nil
}

// Embeddings returns the underlying collection handle.
func (s *Store) Embeddings() *mongo.Collection {
	return s.collection
}

// SaveEmbeddings writes one record per chunk, vectors order-aligned
// with chunks. Returns the number of records written.
func (s *Store) SaveEmbeddings(ctx context.Context, doc *models.Document, chunks []models.Chunk, result *models.EmbeddingResult) (int, error) {
	records := BuildRecords(doc, chunks, result)
	if len(records) == 0 {
		return 0, nil
	}

	docs := make([]any, len(records))
	for i, r := range records {
		docs[i] = r
	}

	inserted, err := s.collection.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("failed to insert embeddings: %w", err)
	}

	slog.Info("embeddings persisted", "records", len(inserted.InsertedIDs), "source_url", doc.SourceURL)
	return len(inserted.InsertedIDs), nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// BuildRecords maps chunks and their vectors to persistable records.
// A chunk with no matching vector is stored without one.
func BuildRecords(doc *models.Document, chunks []models.Chunk, result *models.EmbeddingResult) []ChunkRecord {
	if doc == nil || len(chunks) == 0 {
		return nil
	}

	runID := uuid.NewString()
	docID := models.GenerateDocumentID(doc.SourceURL)
	now := time.Now()

	records := make([]ChunkRecord, 0, len(chunks))
	for i, chunk := range chunks {
		record := ChunkRecord{
			RunID:      runID,
			DocumentID: docID,
			SourceURL:  doc.SourceURL,
			Order:      chunk.Order,
			Text:       chunk.Text,
			TokenCount: chunk.TokenCount,
			CreatedAt:  now,
		}
		if result != nil {
			record.Model = result.Model
			if i < len(result.Vectors) {
				record.Vector = result.Vectors[i]
			}
		}
		records = append(records, record)
	}
	return records
}
