package counter

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestSession(t *testing.T) {
	c := qt.New(t)
	r := newRegistry(t)
	ctr := deploy(t, r)
	ctx := context.Background()

	s := ctr.Session(userA)
	c.Assert(s.Account(), qt.Equals, userA)
	c.Assert(s.Contract(), qt.Equals, ctr.Address())

	hash, err := s.AddToCounter(ctx, 12)
	c.Assert(err, qt.IsNil)
	c.Assert(s.WaitTx(ctx, hash), qt.IsNil)
	total, err := s.PublicTotal(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(total, qt.Equals, uint32(12))
	mine, err := s.DecryptMyContribution(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(mine, qt.Equals, uint32(12))

	_, err = s.ResetCounter(ctx)
	c.Assert(IsRevert(err), qt.IsTrue)

	owner, err := s.Owner(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(owner, qt.Equals, deployer)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.AddToCounter(cancelled, 1)
	c.Assert(err, qt.ErrorIs, context.Canceled)
}
