package store

import (
	"context"

	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/pool"
)

// NewFactory returns the hooks that wire the store into a resource pool:
// a factory opening a fresh SQLite session, a health check used on
// release, and a close hook used on reclamation and shutdown.
func NewFactory(cfg Config) (factory pool.Factory[*Store], check func(*Store) bool, closeFn func(*Store) error) {
	factory = func(ctx context.Context) (*Store, error) {
		return Open(cfg)
	}
	check = func(s *Store) bool {
		return s.Ping(context.Background()) == nil
	}
	closeFn = func(s *Store) error {
		return s.Close()
	}
	return factory, check, closeFn
}
