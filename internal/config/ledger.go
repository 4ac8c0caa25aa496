package config

import "time"

type Ledger struct {
	// PersistTimeout bounds a single sale record write. On expiry the
	// coordinator rolls back all stock reservations of the sale.
	PersistTimeout time.Duration `env:"LEDGER_PERSIST_TIMEOUT" envDefault:"5s"`
}
