package session

import (
	"errors"

	"github.com/huber0203/shioaji-gateway/internal/broker"
	"github.com/huber0203/shioaji-gateway/internal/contracts"
)

// ErrNotInitialized is returned when no login has completed yet.
var ErrNotInitialized = errors.New("broker session not initialized")

// Session is one authenticated brokerage connection plus the contract
// universe fetched at login. It is replaced wholesale by a new login and
// torn down only by process exit.
type Session struct {
	Client     broker.Client
	Simulation bool
	Accounts   []broker.Account
	Directory  *broker.Directory
	Cache      *contracts.Cache
}

// New wraps an authenticated client. The cache starts empty and is populated
// lazily by the first fetch-all request.
func New(client broker.Client, simulation bool, accounts []broker.Account, dir *broker.Directory) *Session {
	return &Session{
		Client:     client,
		Simulation: simulation,
		Accounts:   accounts,
		Directory:  dir,
		Cache:      contracts.NewCache(),
	}
}
