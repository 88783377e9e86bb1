package catalog

import (
	"context"
	"fmt"

	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const listProductsMethod = "/hipstershop.ProductCatalogService/ListProducts"

// GRPCSource lists products from the Online Boutique productcatalogservice.
type GRPCSource struct {
	conn   *grpc.ClientConn
	logger *zap.Logger
}

// NewGRPCSource creates a client for the catalog service at addr. Extra dial
// options are appended after the defaults.
func NewGRPCSource(addr string, logger *zap.Logger, opts ...grpc.DialOption) (*GRPCSource, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(wireCodec{})),
	}, opts...)
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrConfiguration, "catalog connect", fmt.Errorf("%s: %w", addr, err))
	}
	return &GRPCSource{conn: conn, logger: logger}, nil
}

// ListProducts fetches the whole catalog in one call.
func (s *GRPCSource) ListProducts(ctx context.Context) ([]Product, error) {
	var resp listProductsResponse
	if err := s.conn.Invoke(ctx, listProductsMethod, &emptyMessage{}, &resp); err != nil {
		return nil, apperr.Wrap(apperr.ErrUpstreamUnavailable, "list products", err)
	}
	s.logger.Debug("catalog listed", zap.Int("products", len(resp.Products)))
	return resp.Products, nil
}

// Close tears down the underlying gRPC connection.
func (s *GRPCSource) Close() error {
	return s.conn.Close()
}
