package broker

import "context"

// Client is the capability contract of the brokerage session. All calls are
// synchronous; errors are not interpreted beyond succeeded / failed.
type Client interface {
	ActivateCA(ctx context.Context, caPath, caPassword, personID string) (bool, error)
	Login(ctx context.Context, apiKey, secretKey string) ([]Account, error)
	FetchContracts(ctx context.Context) (*Directory, error)
	Usage(ctx context.Context) (Usage, error)
	Snapshots(ctx context.Context, contracts []Contract) ([]Snapshot, error)
}
