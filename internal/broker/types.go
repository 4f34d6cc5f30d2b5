package broker

// Venue is a stock sub-market. OES availability depends on the brokerage
// account and may be absent entirely.
type Venue string

const (
	VenueTSE Venue = "TSE"
	VenueOTC Venue = "OTC"
	VenueOES Venue = "OES"
)

const CategoryWarrant = "Warrant"

type Account struct {
	AccountType string `json:"account_type,omitempty"`
	PersonID    string `json:"person_id,omitempty"`
	BrokerID    string `json:"broker_id,omitempty"`
	AccountID   string `json:"account_id,omitempty"`
	Signed      bool   `json:"signed,omitempty"`
	Username    string `json:"username,omitempty"`
}

// Contract is the opaque instrument handle returned by the contract
// directories. Only Code and Category are interpreted here; the rest is
// passed back to the bridge unchanged on snapshot queries.
type Contract struct {
	Code     string `json:"code"`
	Symbol   string `json:"symbol,omitempty"`
	Name     string `json:"name,omitempty"`
	Category string `json:"category,omitempty"`
	Exchange string `json:"exchange,omitempty"`
}

// Snapshot is a point-in-time quote. Close and TS are nil when the bridge
// omits them for an instrument.
type Snapshot struct {
	Code  string   `json:"code"`
	Close *float64 `json:"close,omitempty"`
	TS    *int64   `json:"ts,omitempty"`
}

// Usage reports cumulative data-transfer volume against the daily limit.
type Usage struct {
	Bytes      int64 `json:"bytes"`
	LimitBytes int64 `json:"limit_bytes"`
}

// StockBoards holds the per-venue stock directories. A nil OES means the
// venue is not offered for this account.
type StockBoards struct {
	TSE []Contract `json:"TSE"`
	OTC []Contract `json:"OTC"`
	OES []Contract `json:"OES,omitempty"`
}

// Directory is the full contract universe fetched after login.
type Directory struct {
	Stocks  StockBoards `json:"stocks"`
	Futures []Contract  `json:"futures"`
	Options []Contract  `json:"options"`

	stockIdx   map[Venue]map[string]Contract
	futuresIdx map[string]Contract
	optionsIdx map[string]Contract
}

// Reindex builds the code lookup maps. Call after populating or decoding the
// directory; lookups on an unindexed directory always miss.
func (d *Directory) Reindex() {
	d.stockIdx = make(map[Venue]map[string]Contract, 3)
	for _, b := range d.Boards() {
		idx := make(map[string]Contract, len(b.Contracts))
		for _, c := range b.Contracts {
			if c.Code != "" {
				idx[c.Code] = c
			}
		}
		d.stockIdx[b.Venue] = idx
	}
	d.futuresIdx = indexByCode(d.Futures)
	d.optionsIdx = indexByCode(d.Options)
}

// Board pairs a venue with its contract list.
type Board struct {
	Venue     Venue
	Contracts []Contract
}

// Boards returns the stock venues in probe order TSE, OTC, OES. OES is
// omitted when the venue is absent.
func (d *Directory) Boards() []Board {
	boards := []Board{
		{Venue: VenueTSE, Contracts: d.Stocks.TSE},
		{Venue: VenueOTC, Contracts: d.Stocks.OTC},
	}
	if d.Stocks.OES != nil {
		boards = append(boards, Board{Venue: VenueOES, Contracts: d.Stocks.OES})
	}
	return boards
}

// HasOES reports whether the OES venue is offered.
func (d *Directory) HasOES() bool {
	return d.Stocks.OES != nil
}

// FindStock probes TSE, then OTC, then OES for the code and returns the
// first hit.
func (d *Directory) FindStock(code string) (Contract, Venue, bool) {
	for _, v := range []Venue{VenueTSE, VenueOTC, VenueOES} {
		idx, ok := d.stockIdx[v]
		if !ok {
			continue
		}
		if c, ok := idx[code]; ok {
			return c, v, true
		}
	}
	return Contract{}, "", false
}

// Future looks up a futures contract by code.
func (d *Directory) Future(code string) (Contract, bool) {
	c, ok := d.futuresIdx[code]
	return c, ok
}

// Option looks up an options contract by code.
func (d *Directory) Option(code string) (Contract, bool) {
	c, ok := d.optionsIdx[code]
	return c, ok
}

func indexByCode(contracts []Contract) map[string]Contract {
	idx := make(map[string]Contract, len(contracts))
	for _, c := range contracts {
		if c.Code != "" {
			idx[c.Code] = c
		}
	}
	return idx
}
