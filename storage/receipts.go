package storage

import "github.com/ethereum/go-ethereum/common"

// Receipt returns the receipt of the transaction with the given hash.
func (s *Storage) Receipt(txHash common.Hash) (*Receipt, error) {
	r := &Receipt{}
	if err := s.getArtifact(receiptPrefix, txHash.Bytes(), r); err != nil {
		return nil, err
	}
	return r, nil
}
