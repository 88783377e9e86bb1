package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nidhogg/boutique-stylist/internal/apperr"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// QdrantConfig holds connection settings for a Qdrant instance.
type QdrantConfig struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Collection string `json:"collection"`
}

// Payload keys stored with every point.
const (
	payloadProductID   = "product_id"
	payloadName        = "name"
	payloadDescription = "description"
	payloadPriceUnits  = "price_units"
)

// pointNamespace scopes the UUIDs derived from product ids.
var pointNamespace = uuid.MustParse("6f1c2a54-3b7e-4a53-9a0e-5d3f1c8b2e10")

// Client wraps gRPC connections to Qdrant's collections and points services.
// One Client serves one collection.
type Client struct {
	conn        *grpc.ClientConn
	collection  string
	collections pb.CollectionsClient
	points      pb.PointsClient
}

// NewClient dials the Qdrant gRPC endpoint and returns a ready Client.
func NewClient(cfg QdrantConfig, opts ...grpc.DialOption) (*Client, error) {
	return dial(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), cfg.Collection, opts...)
}

func dial(addr, collection string, opts ...grpc.DialOption) (*Client, error) {
	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrConfiguration, "qdrant connect", fmt.Errorf("%s: %w", addr, err))
	}
	return &Client{
		conn:        conn,
		collection:  collection,
		collections: pb.NewCollectionsClient(conn),
		points:      pb.NewPointsClient(conn),
	}, nil
}

// PointID maps a catalog id to the deterministic UUID Qdrant stores it under.
func PointID(productID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(productID)).String()
}

// EnsureIndex creates the collection if it does not already exist. An
// existing collection with a different vector size is rejected.
func (c *Client) EnsureIndex(ctx context.Context, dimension int) error {
	size, exists, err := c.collectionSize(ctx)
	if err != nil {
		return err
	}
	if exists {
		return checkSize(c.collection, size, dimension)
	}

	_, err = c.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: c.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return classify("create collection "+c.collection, err)
	}
	return nil
}

// CheckDimension verifies an existing collection against dimension without
// creating anything. A missing collection passes.
func (c *Client) CheckDimension(ctx context.Context, dimension int) error {
	size, exists, err := c.collectionSize(ctx)
	if err != nil || !exists {
		return err
	}
	return checkSize(c.collection, size, dimension)
}

// collectionSize reports the configured vector size. Only NotFound counts
// as a missing collection.
func (c *Client) collectionSize(ctx context.Context) (uint64, bool, error) {
	info, err := c.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: c.collection})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, false, nil
		}
		return 0, false, classify("get collection "+c.collection, err)
	}
	return info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize(), true, nil
}

func checkSize(name string, size uint64, dimension int) error {
	if size != 0 && int(size) != dimension {
		return dimensionMismatch(name, int(size), dimension)
	}
	return nil
}

// Upsert inserts or overwrites the given entries in a single request.
func (c *Client) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	points := make([]*pb.PointStruct, 0, len(entries))
	for _, e := range entries {
		points = append(points, &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(e.ID)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: e.Vector}}},
			Payload: map[string]*pb.Value{
				payloadProductID:   stringValue(e.ID),
				payloadName:        stringValue(e.Metadata.Name),
				payloadDescription: stringValue(e.Metadata.Description),
				payloadPriceUnits:  {Kind: &pb.Value_IntegerValue{IntegerValue: e.Metadata.PriceUnits}},
			},
		})
	}
	wait := true
	_, err := c.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: c.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return classify("upsert "+c.collection, err)
	}
	return nil
}

// Query performs a nearest-neighbour search and returns the top-k matches in
// the order Qdrant ranked them.
func (c *Client) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	resp, err := c.points.Search(ctx, &pb.SearchPoints{
		CollectionName: c.collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, classify("search "+c.collection, err)
	}
	matches := make([]Match, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		p := r.GetPayload()
		id := p[payloadProductID].GetStringValue()
		if id == "" {
			id = r.GetId().GetUuid()
		}
		matches = append(matches, Match{
			ID:    id,
			Score: r.GetScore(),
			Metadata: Metadata{
				Name:        p[payloadName].GetStringValue(),
				Description: p[payloadDescription].GetStringValue(),
				PriceUnits:  p[payloadPriceUnits].GetIntegerValue(),
			},
		})
		if len(matches) == k {
			break
		}
	}
	return matches, nil
}

// Close tears down the underlying gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func isUnavailable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return true
	}
	return false
}

func classify(op string, err error) error {
	if isUnavailable(err) {
		return apperr.Wrap(apperr.ErrUpstreamUnavailable, op, err)
	}
	return apperr.Wrap(apperr.ErrIndex, op, err)
}
