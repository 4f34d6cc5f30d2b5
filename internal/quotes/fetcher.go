package quotes

import (
	"context"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/huber0203/shioaji-gateway/internal/broker"
	"github.com/huber0203/shioaji-gateway/internal/contracts"
)

const (
	DefaultBatchSize = 200
	DefaultInterval  = time.Second
)

// Row is one quoted instrument paired with its cached market label.
type Row struct {
	Code      string   `json:"code"`
	Market    string   `json:"market"`
	Price     *float64 `json:"price"`
	Timestamp *int64   `json:"timestamp"`
}

// Fetcher splits a bulk snapshot request into fixed-size chunks and paces
// them against the brokerage rate limit. A failed chunk is logged and
// skipped; the fetch as a whole still succeeds with whatever came back.
type Fetcher struct {
	batchSize int
	limiter   *rate.Limiter
}

func New(batchSize int, interval time.Duration) *Fetcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Fetcher{
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
	}
}

// FetchAll snapshots every entry in order. Snapshot results are zipped with
// the market labels at the same position within each chunk; the bridge is
// assumed to return one snapshot per requested contract, in request order.
func (f *Fetcher) FetchAll(ctx context.Context, client broker.Client, entries []contracts.Entry) ([]Row, error) {
	rows := make([]Row, 0, len(entries))
	for i := 0; i < len(entries); i += f.batchSize {
		end := i + f.batchSize
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[i:end]

		if err := f.limiter.Wait(ctx); err != nil {
			return rows, err
		}

		batch := make([]broker.Contract, len(chunk))
		for j, e := range chunk {
			batch[j] = e.Contract
		}
		log.Printf("quotes: fetching batch %d: %d contracts", i/f.batchSize+1, len(batch))

		snaps, err := client.Snapshots(ctx, batch)
		if err != nil {
			log.Printf("quotes: batch %d failed: %v", i/f.batchSize+1, err)
			continue
		}
		for j, s := range snaps {
			if j >= len(chunk) {
				break
			}
			rows = append(rows, Row{
				Code:      s.Code,
				Market:    chunk[j].Market,
				Price:     s.Close,
				Timestamp: s.TS,
			})
		}
	}
	return rows, nil
}
