package services

import "sync"

// walletLocks hands out one mutex per wallet so the whole
// check -> settle -> update sequence for an identity is serialized against
// itself, settlement latency included. Requests for different wallets never
// contend. Entries are kept for the life of the process; the map is bounded
// by the number of distinct wallets seen.
type walletLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newWalletLocks() *walletLocks {
	return &walletLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the wallet's mutex and returns the release func.
func (w *walletLocks) acquire(wallet string) func() {
	w.mu.Lock()
	lock, ok := w.locks[wallet]
	if !ok {
		lock = &sync.Mutex{}
		w.locks[wallet] = lock
	}
	w.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
