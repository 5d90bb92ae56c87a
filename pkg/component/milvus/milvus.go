// Package milvus wraps the Milvus v2 SDK client for vector collections keyed
// by string IDs with a JSON metadata column.
package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/kart-io/sentinel-rag/pkg/component/storage"
	milvusopts "github.com/kart-io/sentinel-rag/pkg/options/milvus"
)

// Field names of collections created by EnsureCollection.
const (
	FieldID        = "id"
	FieldEmbedding = "embedding"
	FieldMetadata  = "metadata"

	idMaxLength = 128
	ivfNList    = 128
)

// Client wraps the Milvus SDK client.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

var _ storage.Client = (*Client)(nil)

// New creates a new Milvus client.
func New(ctx context.Context, opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{
		client: c,
		opts:   opts,
	}, nil
}

// Name returns the backend type.
func (c *Client) Name() string {
	return "milvus"
}

// Ping lists collections as a cheap liveness probe.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.client.ListCollections(ctx, milvusclient.NewListCollectionOption())
	return err
}

// Close closes the Milvus client connection.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout)
	defer cancel()
	return c.client.Close(ctx)
}

// RawClient returns the underlying Milvus client.
func (c *Client) RawClient() *milvusclient.Client {
	return c.client
}

// MetricType maps a metric name to the Milvus metric type.
func MetricType(metric string) (entity.MetricType, error) {
	switch metric {
	case "cosine", "":
		return entity.COSINE, nil
	case "l2":
		return entity.L2, nil
	case "ip", "dot":
		return entity.IP, nil
	default:
		return "", fmt.Errorf("unsupported metric %q", metric)
	}
}

// CollectionSchema defines the schema for a vector collection.
type CollectionSchema struct {
	Name        string
	Description string
	Dimension   int
	Metric      entity.MetricType
}

// EnsureCollection creates the collection with an IVF_FLAT index and loads it.
// An existing collection is left as is.
func (c *Client) EnsureCollection(ctx context.Context, schema *CollectionSchema) error {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(schema.Name))
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return c.load(ctx, schema.Name)
	}

	collSchema := entity.NewSchema().
		WithName(schema.Name).
		WithDescription(schema.Description).
		WithAutoID(false).
		WithField(entity.NewField().
			WithName(FieldID).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(idMaxLength).
			WithIsPrimaryKey(true)).
		WithField(entity.NewField().
			WithName(FieldEmbedding).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(schema.Dimension))).
		WithField(entity.NewField().
			WithName(FieldMetadata).
			WithDataType(entity.FieldTypeJSON))

	if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(schema.Name, collSchema)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx := index.NewIvfFlatIndex(schema.Metric, ivfNList)
	createIdxTask, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(schema.Name, FieldEmbedding, idx))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := createIdxTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for index creation: %w", err)
	}

	return c.load(ctx, schema.Name)
}

func (c *Client) load(ctx context.Context, name string) error {
	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

// Insert writes rows and flushes so they are searchable on return.
// ids, vectors and metadata must have the same length.
func (c *Client) Insert(ctx context.Context, collection string, ids []string, vectors [][]float32, metadata [][]byte) error {
	if len(ids) == 0 {
		return nil
	}
	if len(vectors) != len(ids) || len(metadata) != len(ids) {
		return fmt.Errorf("column length mismatch: %d ids, %d vectors, %d metadata", len(ids), len(vectors), len(metadata))
	}

	_, err := c.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(collection,
		column.NewColumnVarChar(FieldID, ids),
		column.NewColumnFloatVector(FieldEmbedding, len(vectors[0]), vectors),
		column.NewColumnJSONBytes(FieldMetadata, metadata),
	))
	if err != nil {
		return fmt.Errorf("failed to insert data: %w", err)
	}

	flushTask, err := c.client.Flush(ctx, milvusclient.NewFlushOption(collection))
	if err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for flush: %w", err)
	}
	return nil
}

// SearchResult represents a single search hit.
type SearchResult struct {
	ID       string
	Score    float32
	Metadata []byte
}

// Search performs a vector similarity search. filter is a Milvus boolean
// expression, empty for none. Hits are returned in Milvus order.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, topK int, filter string) ([]SearchResult, error) {
	opt := milvusclient.NewSearchOption(collection, topK, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(FieldEmbedding).
		WithSearchParam("nprobe", "16").
		WithOutputFields(FieldMetadata)
	if filter != "" {
		opt = opt.WithFilter(filter)
	}

	results, err := c.client.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	if len(results) == 0 {
		return []SearchResult{}, nil
	}

	rs := results[0]
	out := make([]SearchResult, 0, rs.ResultCount)
	ids, _ := rs.IDs.(*column.ColumnVarChar)
	meta, _ := rs.GetColumn(FieldMetadata).(*column.ColumnJSONBytes)
	for i := 0; i < rs.ResultCount; i++ {
		r := SearchResult{Score: rs.Scores[i]}
		if ids != nil {
			r.ID = ids.Data()[i]
		}
		if meta != nil {
			r.Metadata = meta.Data()[i]
		}
		out = append(out, r)
	}
	return out, nil
}

// ListCollections returns all collection names in the database.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	names, err := c.client.ListCollections(ctx, milvusclient.NewListCollectionOption())
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return names, nil
}

// DropCollection drops a collection.
func (c *Client) DropCollection(ctx context.Context, collectionName string) error {
	if err := c.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(collectionName)); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// GetCollectionStats returns the number of entities in a collection.
func (c *Client) GetCollectionStats(ctx context.Context, collectionName string) (int64, error) {
	stats, err := c.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(collectionName))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats: %w", err)
	}

	if val, ok := stats["row_count"]; ok {
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, nil
}
