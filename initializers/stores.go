package initializers

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PrayerLoop/recordsync/stores"
)

const localLockTTL = 5 * time.Second

// Backends are the configured stores plus whatever must be closed on
// shutdown. Firebase is nil with the memory remote store.
type Backends struct {
	Remote   stores.DocumentStore
	Local    stores.LocalStore
	Locker   stores.Locker
	Firebase *Firebase
	closers  []func()
}

func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func ConnectStores(ctx context.Context, cfg *Config, log logrus.FieldLogger) (*Backends, error) {
	b := &Backends{}

	switch cfg.RemoteStore {
	case RemoteStoreMemory:
		log.Warn("using in-memory remote store, records are lost on restart")
		b.Remote = stores.NewMemoryDocumentStore()
	default:
		fb, err := InitFirebase(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		b.Firebase = fb
		b.closers = append(b.closers, fb.Close)
		b.Remote = stores.NewFirestoreDocumentStore(fb.Firestore)
	}

	switch cfg.LocalStore {
	case LocalStoreRedis:
		client, err := ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { client.Close() })
		b.Local = stores.NewRedisLocalStore(client, cfg.RedisPrefix)
		b.Locker = stores.NewRedisLocker(client, cfg.RedisPrefix, localLockTTL)
	case LocalStorePostgres:
		db, pool, err := ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { pool.Close() })
		local := stores.NewPostgresLocalStore(db)
		if err := local.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to prepare local cache: %w", err)
		}
		b.Local = local
	default:
		b.Local = stores.NewMemoryLocalStore()
	}

	log.WithFields(logrus.Fields{
		"remote": cfg.RemoteStore,
		"local":  cfg.LocalStore,
	}).Info("stores connected")
	return b, nil
}
