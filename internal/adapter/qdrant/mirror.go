package qdrant

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"supportbot/internal/domain"
)

// DefaultBatchSize is the number of points sent per upsert request.
const DefaultBatchSize = 64

// Config holds the connection settings of a Qdrant instance.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	Collection string
	UseTLS     bool
}

// Mirror copies a vector store snapshot into a Qdrant collection so it can
// be served by a dedicated vector database.
type Mirror struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	apiKey      string
	collection  string
	logger      *slog.Logger
}

func NewMirror(cfg Config, logger *slog.Logger) (*Mirror, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant collection name is empty")
	}

	creds := insecure.NewCredentials()
	if cfg.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}

	return &Mirror{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		apiKey:      cfg.APIKey,
		collection:  cfg.Collection,
		logger:      logger,
	}, nil
}

func (m *Mirror) withAuth(ctx context.Context) context.Context {
	if m.apiKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", m.apiKey)
}

// EnsureCollection creates the collection with cosine distance when missing.
func (m *Mirror) EnsureCollection(ctx context.Context, dimension int) error {
	ctx = m.withAuth(ctx)

	resp, err := m.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: m.collection})
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if resp.GetResult().GetExists() {
		return nil
	}

	_, err = m.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: m.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{Size: uint64(dimension), Distance: pb.Distance_Cosine},
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", m.collection, err)
	}
	m.logger.Info("created qdrant collection", "collection", m.collection, "dimension", dimension)
	return nil
}

// Export upserts every chunk with a non-zero embedding and returns the number
// of points written. Zero vectors have no direction under cosine distance
// and are skipped.
func (m *Mirror) Export(ctx context.Context, chunks []domain.Chunk, embeddings []domain.Embedding) (int, error) {
	points, skipped := BuildPoints(chunks, embeddings)
	if skipped > 0 {
		m.logger.Warn("skipping zero embeddings", "count", skipped)
	}
	if len(points) == 0 {
		return 0, nil
	}

	if err := m.EnsureCollection(ctx, len(embeddings[0])); err != nil {
		return 0, err
	}

	wait := true
	written := 0
	for i := 0; i < len(points); i += DefaultBatchSize {
		end := min(i+DefaultBatchSize, len(points))
		_, err := m.points.Upsert(m.withAuth(ctx), &pb.UpsertPoints{
			CollectionName: m.collection,
			Wait:           &wait,
			Points:         points[i:end],
		})
		if err != nil {
			return written, fmt.Errorf("failed to upsert points: %w", err)
		}
		written = end
		m.logger.Debug("upserted points", "done", written, "total", len(points))
	}
	return written, nil
}

// BuildPoints converts stored chunks into Qdrant points. Point ids are
// derived from the source and position so repeated exports overwrite
// rather than duplicate.
func BuildPoints(chunks []domain.Chunk, embeddings []domain.Embedding) ([]*pb.PointStruct, int) {
	points := make([]*pb.PointStruct, 0, len(chunks))
	skipped := 0

	for i, chunk := range chunks {
		if i >= len(embeddings) || embeddings[i].IsZero() {
			skipped++
			continue
		}

		payload := map[string]*pb.Value{
			"content":  {Kind: &pb.Value_StringValue{StringValue: chunk.Content}},
			"position": {Kind: &pb.Value_IntegerValue{IntegerValue: int64(i)}},
		}
		for k, v := range chunk.Metadata {
			switch val := v.(type) {
			case int:
				payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(val)}}
			case float64:
				payload[k] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: val}}
			default:
				payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(val)}}
			}
		}

		points = append(points, &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(chunk, i)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: embeddings[i]}}},
			Payload: payload,
		})
	}
	return points, skipped
}

// PointID is a stable UUID for the chunk stored at position.
func PointID(chunk domain.Chunk, position int) string {
	name := fmt.Sprintf("%s#%d", chunk.Metadata.String(domain.MetaSource), position)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func (m *Mirror) Close() error {
	return m.conn.Close()
}
