package storage

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/confidential-counter/log"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Contribution returns the contribution of account to contract during
// epoch. A missing record is returned as a zero contribution.
func (s *Storage) Contribution(contract common.Address, epoch uint64, account common.Address) (*Contribution, error) {
	cb := &Contribution{}
	err := s.getArtifact(contributionPrefix, contributionKey(contract, epoch, account), cb)
	if err == ErrNotFound {
		return &Contribution{Contract: contract, Epoch: epoch, Account: account}, nil
	}
	if err != nil {
		return nil, err
	}
	return cb, nil
}

// Contributions returns every contribution of contract during epoch.
func (s *Storage) Contributions(contract common.Address, epoch uint64) ([]*Contribution, error) {
	rd := prefixeddb.NewPrefixedReader(s.db, contributionPrefix)
	var res []*Contribution
	if err := rd.Iterate(epochKey(contract, epoch), func(k, v []byte) bool {
		cb := &Contribution{}
		if err := decodeArtifact(v, cb); err != nil {
			log.Warnw("failed to decode contribution", "contract", contract.Hex(), "error", err.Error())
			return true
		}
		res = append(res, cb)
		return true
	}); err != nil {
		return nil, err
	}
	return res, nil
}
