package web3

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/confidential-counter/counter"
	"github.com/vocdoni/confidential-counter/storage"
)

var (
	testContract = common.HexToAddress("0x3d0b39c0239329955b9F0E8791dF9Aa84133c861")
	testUser     = common.HexToAddress("0x000000000000000000000000000000000000000a")
)

func counterLog(t *testing.T, name string, args ...any) types.Log {
	t.Helper()
	ev := counterABI.Events[name]
	data, err := ev.Inputs.NonIndexed().Pack(args...)
	qt.Assert(t, err, qt.IsNil)
	return types.Log{
		Address:     testContract,
		Topics:      []common.Hash{ev.ID, common.BytesToHash(testUser.Bytes())},
		Data:        data,
		BlockNumber: 12,
		TxHash:      common.HexToHash("0xabcd"),
	}
}

func TestDecodeEvent(t *testing.T) {
	c := qt.New(t)

	ev, err := DecodeEvent(counterLog(t, storage.EventCounterIncremented, uint32(15)))
	c.Assert(err, qt.IsNil)
	c.Assert(ev.Name, qt.Equals, storage.EventCounterIncremented)
	c.Assert(ev.User, qt.Equals, testUser)
	c.Assert(ev.Contract, qt.Equals, testContract)
	c.Assert(ev.PublicTotal, qt.Equals, uint32(15))
	c.Assert(ev.BlockNumber, qt.Equals, uint64(12))

	ev, err = DecodeEvent(counterLog(t, storage.EventThresholdChecked, uint32(10), true))
	c.Assert(err, qt.IsNil)
	c.Assert(ev.Threshold, qt.Equals, uint32(10))
	c.Assert(ev.Result, qt.IsTrue)

	ev, err = DecodeEvent(counterLog(t, storage.EventMaxValueComputed, uint32(7), uint32(20)))
	c.Assert(err, qt.IsNil)
	c.Assert(ev.Value, qt.Equals, uint32(7))
	c.Assert(ev.Max, qt.Equals, uint32(20))

	ev, err = DecodeEvent(counterLog(t, storage.EventCounterReset))
	c.Assert(err, qt.IsNil)
	c.Assert(ev.Name, qt.Equals, storage.EventCounterReset)

	_, err = DecodeEvent(types.Log{Topics: []common.Hash{{0x01}, {0x02}}})
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestAsRevert(t *testing.T) {
	c := qt.New(t)

	err := asRevert(errors.New("resetCounter: execution reverted: Only the owner can call this function"))
	reason, ok := counter.RevertReason(err)
	c.Assert(ok, qt.IsTrue)
	c.Assert(reason, qt.Equals, counter.ReasonOnlyOwner)

	plain := errors.New("connection refused")
	c.Assert(asRevert(plain), qt.Equals, plain)
	c.Assert(asRevert(nil), qt.IsNil)
}

func TestABIMatchesEvents(t *testing.T) {
	c := qt.New(t)
	for _, name := range []string{
		storage.EventCounterIncremented,
		storage.EventRandomValueAdded,
		storage.EventCounterReset,
		storage.EventThresholdChecked,
		storage.EventMaxValueComputed,
	} {
		_, ok := counterABI.Events[name]
		c.Assert(ok, qt.IsTrue, qt.Commentf("event %s", name))
	}
}
