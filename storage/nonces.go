package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Nonce returns the next request nonce expected from account.
func (s *Storage) Nonce(account common.Address) (uint64, error) {
	return getUint64(prefixeddb.NewPrefixedReader(s.db, noncePrefix), account.Bytes())
}

// ConsumeNonce checks that nonce is the next one expected from account and
// increments it. It returns ErrNonceMismatch otherwise.
func (s *Storage) ConsumeNonce(account common.Address, nonce uint64) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	expected, err := s.Nonce(account)
	if err != nil {
		return err
	}
	if nonce != expected {
		return fmt.Errorf("%w: expected %d, got %d", ErrNonceMismatch, expected, nonce)
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), noncePrefix)
	defer wTx.Discard()
	if err := setUint64(wTx, account.Bytes(), expected+1); err != nil {
		return err
	}
	return wTx.Commit()
}
