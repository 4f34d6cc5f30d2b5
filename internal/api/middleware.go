package api

import (
	"context"
	"log"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"

	"github.com/huber0203/shioaji-gateway/internal/store"
)

// accessLog tags every request with an id, logs it, and journals it to the
// store off the request path.
func accessLog(st *store.Store) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		reqID := uuid.NewString()
		c.Set("request_id", reqID)

		c.Next(ctx)

		status := c.Response.StatusCode()
		elapsed := time.Since(start)
		method := string(c.Method())
		path := string(c.Path())
		log.Printf("%s %s %s -> %d (%s)", reqID, method, path, status, elapsed)

		if st != nil {
			rec := store.RequestRecord{
				TS:         start.Unix(),
				RequestID:  reqID,
				Method:     method,
				Path:       path,
				Status:     status,
				DurationMS: elapsed.Milliseconds(),
				Remote:     c.ClientIP(),
			}
			go func() {
				if err := st.InsertRequest(rec); err != nil {
					log.Printf("api: journal request: %v", err)
				}
			}()
		}
	}
}
