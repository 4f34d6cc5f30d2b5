package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"

	"github.com/huber0203/shioaji-gateway/internal/broker"
	"github.com/huber0203/shioaji-gateway/internal/guard"
	"github.com/huber0203/shioaji-gateway/internal/notify"
	"github.com/huber0203/shioaji-gateway/internal/quotes"
	"github.com/huber0203/shioaji-gateway/internal/session"
	"github.com/huber0203/shioaji-gateway/internal/store"
)

// ClientFactory builds a fresh brokerage client for a login attempt.
type ClientFactory func(simulation bool) broker.Client

// Deps carries everything the handlers need. Handlers hold no state of
// their own; the session manager owns the single live session.
type Deps struct {
	Sessions      *session.Manager
	NewClient     ClientFactory
	Guard         *guard.Guard
	Fetcher       *quotes.Fetcher
	Store         *store.Store
	Notifier      *notify.Notifier
	DefaultCAPath string
}

type LoginRequest struct {
	APIKey         string `json:"api_key"`
	SecretKey      string `json:"secret_key"`
	CAPath         string `json:"ca_path"`
	CAPassword     string `json:"ca_password"`
	PersonID       string `json:"person_id"`
	SimulationMode bool   `json:"simulation_mode"`
}

func RegisterRoutes(h *server.Hertz, deps Deps) {
	h.Use(accessLog(deps.Store))

	h.GET("/healthz", func(_ context.Context, c *app.RequestContext) {
		c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})

	h.POST("/login", func(ctx context.Context, c *app.RequestContext) {
		if deps.Sessions == nil || deps.NewClient == nil {
			respondErr(c, http.StatusInternalServerError, "session manager not configured")
			return
		}

		if len(c.Request.Body()) == 0 {
			log.Printf("login: request body is empty")
			respondErr(c, http.StatusBadRequest, "Request body is empty")
			return
		}
		var req LoginRequest
		if err := c.BindJSON(&req); err != nil {
			log.Printf("login: bad json body: %v", err)
			respondErr(c, http.StatusBadRequest, "Request body is empty")
			return
		}
		if req.CAPath == "" {
			req.CAPath = deps.DefaultCAPath
		}

		if missing := missingParams(req); len(missing) != 0 {
			msg := "Missing parameters: " + strings.Join(missing, ", ")
			log.Printf("login: %s", msg)
			respondErr(c, http.StatusBadRequest, msg)
			return
		}

		if !req.SimulationMode {
			if _, err := os.Stat(req.CAPath); err != nil {
				msg := fmt.Sprintf("CA file not found at %s", req.CAPath)
				log.Printf("login: %s", msg)
				respondErr(c, http.StatusInternalServerError, msg)
				return
			}
		}

		log.Printf("login: initializing broker client with simulation=%v", req.SimulationMode)
		client := deps.NewClient(req.SimulationMode)

		if !req.SimulationMode {
			log.Printf("login: activating CA with ca_path=%s", req.CAPath)
			ok, err := client.ActivateCA(ctx, req.CAPath, req.CAPassword, req.PersonID)
			if err != nil {
				log.Printf("login: activate CA error: %v", err)
				respondErr(c, http.StatusInternalServerError, fmt.Sprintf("Error in login: %v", err))
				return
			}
			if !ok {
				log.Printf("login: failed to activate CA")
				deps.Notifier.Warn(ctx, "ca_activation", "CA activation failed")
				respondErr(c, http.StatusInternalServerError, "Failed to activate CA")
				return
			}
		}

		accounts, err := client.Login(ctx, req.APIKey, req.SecretKey)
		if err != nil {
			log.Printf("login: error: %v", err)
			respondErr(c, http.StatusInternalServerError, fmt.Sprintf("Error in login: %v", err))
			return
		}
		log.Printf("login: successful, %d accounts", len(accounts))

		dir, err := client.FetchContracts(ctx)
		if err != nil {
			log.Printf("login: fetch contracts error: %v", err)
			respondErr(c, http.StatusInternalServerError, fmt.Sprintf("Error in login: %v", err))
			return
		}
		log.Printf("login: contracts data fetched")

		deps.Sessions.Replace(session.New(client, req.SimulationMode, accounts, dir))

		respond(c, http.StatusOK, map[string]any{
			"message":  "Login successful",
			"accounts": accounts,
		})
	})

	h.GET("/fetch_all", func(ctx context.Context, c *app.RequestContext) {
		sess, err := deps.Sessions.Current()
		if err != nil {
			log.Printf("fetch_all: %v", err)
			respondErr(c, http.StatusInternalServerError, err.Error())
			return
		}

		usage, err := sess.Client.Usage(ctx)
		if err != nil {
			log.Printf("fetch_all: usage query error: %v", err)
			respondErr(c, http.StatusInternalServerError, fmt.Sprintf("Error in fetch_all: %v", err))
			return
		}
		if err := deps.Guard.CheckTraffic(usage); err != nil {
			log.Printf("fetch_all: %v", err)
			deps.Notifier.Warn(ctx, "traffic_limit", "approaching daily traffic limit")
			respondErr(c, http.StatusTooManyRequests, "Approaching traffic limit")
			return
		}
		if err := deps.Guard.CheckMemory(); err != nil {
			log.Printf("fetch_all: %v", err)
			deps.Notifier.Warn(ctx, "memory_limit", "high memory usage detected")
			respondErr(c, http.StatusTooManyRequests, "High memory usage")
			return
		}

		if sess.Cache.Populate(sess.Directory) {
			log.Printf("fetch_all: contract cache populated")
		}

		rows, err := deps.Fetcher.FetchAll(ctx, sess.Client, sess.Cache.All())
		if err != nil {
			log.Printf("fetch_all: error: %v", err)
			respondErr(c, http.StatusInternalServerError, fmt.Sprintf("Error in fetch_all: %v", err))
			return
		}

		go journalQuotes(deps.Store, rows)

		respond(c, http.StatusOK, map[string]any{
			"message": "Quotes fetched",
			"quotes":  rows,
		})
	})

	h.GET("/quote", func(ctx context.Context, c *app.RequestContext) {
		code := string(c.Query("code"))
		typ := string(c.Query("type"))
		if typ == "" {
			typ = "stock"
		}

		if code == "" {
			log.Printf("quote: missing parameter: code")
			respondErr(c, http.StatusBadRequest, "Missing parameter: code")
			return
		}

		sess, err := deps.Sessions.Current()
		if err != nil {
			log.Printf("quote: %v", err)
			respondErr(c, http.StatusInternalServerError, err.Error())
			return
		}

		log.Printf("quote: request code=%s type=%s", code, typ)

		var (
			contract broker.Contract
			market   string
			found    bool
		)
		switch typ {
		case "stock":
			var venue broker.Venue
			contract, venue, found = sess.Directory.FindStock(code)
			market = string(venue)
			if found && contract.Category == broker.CategoryWarrant {
				market += "_Warrant"
			}
		case "futures":
			contract, found = sess.Directory.Future(code)
			market = "Futures"
		case "options":
			contract, found = sess.Directory.Option(code)
			market = "Options"
		default:
			log.Printf("quote: unsupported type: %s", typ)
			respondErr(c, http.StatusBadRequest, fmt.Sprintf("Unsupported type: %s", typ))
			return
		}

		if !found {
			log.Printf("quote: contract not found for code=%s type=%s", code, typ)
			respondErr(c, http.StatusInternalServerError, fmt.Sprintf("Contract not found for code=%s", code))
			return
		}

		snaps, err := sess.Client.Snapshots(ctx, []broker.Contract{contract})
		if err != nil {
			log.Printf("quote: error: %v", err)
			respondErr(c, http.StatusInternalServerError, fmt.Sprintf("Error in quote: %v", err))
			return
		}
		if len(snaps) == 0 {
			log.Printf("quote: empty snapshot for code=%s", code)
			respondErr(c, http.StatusInternalServerError, fmt.Sprintf("Error in quote: empty snapshot for code=%s", code))
			return
		}

		snap := snaps[0]
		respond(c, http.StatusOK, map[string]any{
			"message": "Quote fetched",
			"quote": map[string]any{
				"code":      snap.Code,
				"price":     snap.Close,
				"timestamp": snap.TS,
			},
			"market": market,
			"type":   typ,
		})
	})

	h.GET("/history", func(_ context.Context, c *app.RequestContext) {
		if deps.Store == nil {
			respondErr(c, http.StatusInternalServerError, "store not configured")
			return
		}
		code := string(c.Query("code"))
		if code == "" {
			respondErr(c, http.StatusBadRequest, "Missing parameter: code")
			return
		}
		limit, err := parseNonNegative(string(c.Query("limit")), 200)
		if err != nil {
			respondErr(c, http.StatusBadRequest, "invalid limit")
			return
		}
		offset, err := parseNonNegative(string(c.Query("offset")), 0)
		if err != nil {
			respondErr(c, http.StatusBadRequest, "invalid offset")
			return
		}
		items, err := deps.Store.QueryQuoteHistory(code, limit, offset)
		if err != nil {
			respondErr(c, http.StatusInternalServerError, err.Error())
			return
		}
		respond(c, http.StatusOK, map[string]any{
			"message": "History fetched",
			"items":   items,
		})
	})
}

// respond writes the gateway envelope: the payload is JSON-encoded into the
// body field as a string, and the embedded statusCode mirrors the HTTP
// status. The double-encoded body is the wire shape existing callers parse.
func respond(c *app.RequestContext, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("api: marshal response: %v", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal error"}`)
	}
	c.JSON(status, map[string]any{
		"statusCode": status,
		"body":       string(body),
	})
}

func respondErr(c *app.RequestContext, status int, msg string) {
	respond(c, status, map[string]string{"error": msg})
}

// missingParams reports absent login fields in a stable order. Certificate
// fields are only required outside simulation mode.
func missingParams(req LoginRequest) []string {
	var missing []string
	if req.APIKey == "" {
		missing = append(missing, "api_key")
	}
	if req.SecretKey == "" {
		missing = append(missing, "secret_key")
	}
	if !req.SimulationMode {
		if req.CAPassword == "" {
			missing = append(missing, "ca_password")
		}
		if req.PersonID == "" {
			missing = append(missing, "person_id")
		}
	}
	return missing
}

func parseNonNegative(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid value: %q", raw)
	}
	return v, nil
}

func journalQuotes(st *store.Store, rows []quotes.Row) {
	if st == nil {
		return
	}
	now := time.Now().Unix()
	for _, r := range rows {
		if r.Price == nil {
			continue
		}
		ts := now
		if r.Timestamp != nil {
			ts = *r.Timestamp
		}
		if err := st.InsertQuote(store.QuoteRecord{
			TS:     ts,
			Code:   r.Code,
			Market: r.Market,
			Price:  *r.Price,
		}); err != nil {
			log.Printf("api: journal quote %s: %v", r.Code, err)
			return
		}
	}
}
