// Package stream opens the transaction-stream subscription and converts the
// wire transactions into the domain model. All proto handling lives here.
package stream

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"

	indexerv1 "github.com/aptos-labs/aptos-protos/go/aptos/indexer/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

// Server responses can carry thousands of transactions; the default 4 MB
// receive cap is far too small.
const maxRecvMsgSize = 1 << 30

// ErrEndOfStream marks a server-side end of the subscription (the requested
// ending version was served). The supervisor drains on it.
var ErrEndOfStream = fmt.Errorf("end of transaction stream")

// ErrMalformed marks input the pipeline cannot decode. Unlike transport
// failures, reconnecting cannot fix it; the supervisor treats it as fatal.
var ErrMalformed = fmt.Errorf("malformed transaction stream")

type Config struct {
	URL       string
	AuthToken string
	// BatchSize is the transaction count requested per server response.
	BatchSize uint64
}

type Client struct {
	cfg  Config
	conn *grpc.ClientConn
	raw  indexerv1.RawDataClient
}

func NewClient(cfg Config) (*Client, error) {
	addr := cfg.URL
	creds := grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{}))
	if strings.HasPrefix(addr, "http://") {
		creds = grpc.WithTransportCredentials(insecure.NewCredentials())
	}
	addr = strings.TrimPrefix(strings.TrimPrefix(addr, "http://"), "https://")

	conn, err := grpc.NewClient(addr, creds,
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxRecvMsgSize)))
	if err != nil {
		return nil, fmt.Errorf("dial transaction stream %s: %w", cfg.URL, err)
	}
	return &Client{cfg: cfg, conn: conn, raw: indexerv1.NewRawDataClient(conn)}, nil
}

func (c *Client) Close() {
	_ = c.conn.Close()
}

func (c *Client) authCtx(ctx context.Context) context.Context {
	if c.cfg.AuthToken == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.cfg.AuthToken)
}

// GetChainID reads the chain id from a single-transaction request. Every
// response carries it; one transaction is the cheapest way to ask.
func (c *Client) GetChainID(ctx context.Context) (uint64, error) {
	start, count := uint64(0), uint64(1)
	stream, err := c.raw.GetTransactions(c.authCtx(ctx), &indexerv1.GetTransactionsRequest{
		StartingVersion:   &start,
		TransactionsCount: &count,
	})
	if err != nil {
		return 0, fmt.Errorf("chain id request: %w", err)
	}
	resp, err := stream.Recv()
	if err != nil {
		return 0, fmt.Errorf("chain id response: %w", err)
	}
	if resp.ChainId == nil {
		return 0, fmt.Errorf("stream did not report a chain id")
	}
	return *resp.ChainId, nil
}

// Batch is one contiguous server response, already converted.
type Batch struct {
	StartVersion uint64
	EndVersion   uint64
	ChainID      uint64
	Transactions []*transaction.Transaction
}

// Subscription is one long-lived GetTransactions stream. On failure the
// supervisor discards it and re-subscribes from the cursor.
type Subscription struct {
	stream      indexerv1.RawData_GetTransactionsClient
	nextVersion uint64
}

// Subscribe opens the stream at startingVersion. A non-nil endingVersion
// bounds the request (inclusive), for backfill and testing runs.
func (c *Client) Subscribe(ctx context.Context, startingVersion uint64, endingVersion *uint64) (*Subscription, error) {
	req := &indexerv1.GetTransactionsRequest{StartingVersion: &startingVersion}
	if endingVersion != nil {
		if *endingVersion < startingVersion {
			return nil, fmt.Errorf("ending version %d below starting version %d", *endingVersion, startingVersion)
		}
		count := *endingVersion - startingVersion + 1
		req.TransactionsCount = &count
	}
	if c.cfg.BatchSize > 0 {
		batchSize := c.cfg.BatchSize
		req.BatchSize = &batchSize
	}

	stream, err := c.raw.GetTransactions(c.authCtx(ctx), req)
	if err != nil {
		return nil, fmt.Errorf("subscribe at version %d: %w", startingVersion, err)
	}
	return &Subscription{stream: stream, nextVersion: startingVersion}, nil
}

// NextBatch blocks for the next server response and converts it. Returns
// ErrEndOfStream on a clean server close and an error wrapping ErrMalformed
// for undecodable or out-of-order input; any other error means the
// subscription is dead and must be reopened.
func (s *Subscription) NextBatch() (*Batch, error) {
	for {
		resp, err := s.stream.Recv()
		if err == io.EOF {
			return nil, ErrEndOfStream
		}
		if err != nil {
			return nil, err
		}
		if len(resp.Transactions) == 0 {
			continue
		}

		txns := make([]*transaction.Transaction, 0, len(resp.Transactions))
		for _, pb := range resp.Transactions {
			if pb.Version != s.nextVersion {
				return nil, fmt.Errorf("%w: got version %d, want %d", ErrMalformed, pb.Version, s.nextVersion)
			}
			txn, err := convertTransaction(pb)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			txns = append(txns, txn)
			s.nextVersion++
		}

		batch := &Batch{
			StartVersion: txns[0].Version,
			EndVersion:   txns[len(txns)-1].Version,
			Transactions: txns,
		}
		if resp.ChainId != nil {
			batch.ChainID = *resp.ChainId
		}
		return batch, nil
	}
}
