package stage

import (
	"context"

	"github.com/hakim/reconx/internal/tools"
)

// Backend is the narrow interface to the external capabilities. The default
// implementation shells out to subfinder, httpx and nmap.
type Backend interface {
	Enumerate(ctx context.Context, domain string) ([]string, error)
	Probe(ctx context.Context, hosts []string) ([]tools.HttpxResult, error)
	ScanHost(ctx context.Context, host string) ([]tools.NmapResult, error)
}

// ToolBackend runs the external binaries
type ToolBackend struct {
	Binaries     tools.Binaries
	HttpxThreads int
	TopPorts     int
}

func (b ToolBackend) Enumerate(ctx context.Context, domain string) ([]string, error) {
	return tools.RunSubfinder(ctx, domain, b.Binaries.Subfinder)
}

func (b ToolBackend) Probe(ctx context.Context, hosts []string) ([]tools.HttpxResult, error) {
	return tools.RunHttpx(ctx, hosts, b.HttpxThreads, b.Binaries.Httpx)
}

func (b ToolBackend) ScanHost(ctx context.Context, host string) ([]tools.NmapResult, error) {
	return tools.RunNmap(ctx, host, b.TopPorts, b.Binaries.Nmap)
}
