package natsx

import (
	"os"

	"github.com/nats-io/nats.go"
)

// NewClient establishes a connection to a NATS server. When url is empty the
// NATS_URL environment variable is consulted, falling back to the client
// library's default. The connection carries a "squire" client name and
// enables compression; callers append further options (credentials, custom
// names) after those defaults.
func NewClient(url string, opts ...nats.Option) (*nats.Conn, error) {
	if url == "" {
		url = os.Getenv("NATS_URL")
	}
	base := []nats.Option{nats.Name("squire"), nats.Compression(true)}
	return nats.Connect(url, append(base, opts...)...)
}
