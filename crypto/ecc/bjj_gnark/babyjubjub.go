// Package bjj implements BabyJubJub over the gnark-crypto twisted Edwards
// arithmetic of the BN254 scalar field.
package bjj

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	babyjubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	curve "github.com/vocdoni/confidential-counter/crypto/ecc"
	"github.com/vocdoni/confidential-counter/types"
)

const CurveType = "bjj_gnark"

// marshalSize is the length of a compressed point.
const marshalSize = fr.Bytes

var params = babyjubjub.GetEdwardsCurve()

// BJJ is the affine representation of the BabyJubJub group element.
type BJJ struct {
	inner *babyjubjub.PointAffine
	lock  sync.Mutex
}

// New creates a new BJJ point set to the identity (0, 1).
func New() curve.Point {
	g := &BJJ{inner: new(babyjubjub.PointAffine)}
	g.SetZero()
	return g
}

func (g *BJJ) New() curve.Point {
	return New()
}

func (g *BJJ) Order() *big.Int {
	return new(big.Int).Set(&params.Order)
}

func (g *BJJ) Add(a, b curve.Point) {
	g.inner.Add(a.(*BJJ).inner, b.(*BJJ).inner)
}

func (g *BJJ) SafeAdd(a, b curve.Point) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.Add(a, b)
}

func (g *BJJ) ScalarMult(a curve.Point, scalar *big.Int) {
	g.inner.ScalarMultiplication(a.(*BJJ).inner, scalar)
}

func (g *BJJ) ScalarBaseMult(scalar *big.Int) {
	g.inner.ScalarMultiplication(&params.Base, scalar)
}

func (g *BJJ) Neg(a curve.Point) {
	g.inner.Neg(a.(*BJJ).inner)
}

func (g *BJJ) Set(a curve.Point) {
	src := a.(*BJJ).inner
	g.inner.X.Set(&src.X)
	g.inner.Y.Set(&src.Y)
}

func (g *BJJ) SetZero() {
	g.inner.X.SetZero()
	g.inner.Y.SetOne()
}

func (g *BJJ) SetGenerator() {
	g.inner.X.Set(&params.Base.X)
	g.inner.Y.Set(&params.Base.Y)
}

func (g *BJJ) Equal(a curve.Point) bool {
	return g.inner.Equal(a.(*BJJ).inner)
}

func (g *BJJ) Marshal() []byte {
	return g.inner.Marshal()
}

func (g *BJJ) Unmarshal(buf []byte) error {
	if len(buf) != marshalSize {
		return fmt.Errorf("invalid babyjubjub point length: got %d, expected %d", len(buf), marshalSize)
	}
	p := new(babyjubjub.PointAffine)
	if _, err := p.SetBytes(buf); err != nil {
		return err
	}
	g.inner = p
	return nil
}

func (g *BJJ) MarshalSize() int {
	return marshalSize
}

// MarshalJSON encodes the point as its [x, y] coordinates.
func (g *BJJ) MarshalJSON() ([]byte, error) {
	x, y := g.Point()
	return json.Marshal([]*types.BigInt{(*types.BigInt)(x), (*types.BigInt)(y)})
}

func (g *BJJ) UnmarshalJSON(buf []byte) error {
	var coords []*types.BigInt
	if err := json.Unmarshal(buf, &coords); err != nil {
		return err
	}
	if len(coords) != 2 {
		return fmt.Errorf("expected 2 coordinates, got %d", len(coords))
	}
	g.SetPoint(coords[0].MathBigInt(), coords[1].MathBigInt())
	if !g.inner.IsOnCurve() {
		return fmt.Errorf("point is not on the curve")
	}
	return nil
}

func (g *BJJ) String() string {
	return fmt.Sprintf("%x", g.Marshal())
}

func (g *BJJ) Point() (*big.Int, *big.Int) {
	x, y := new(big.Int), new(big.Int)
	g.inner.X.BigInt(x)
	g.inner.Y.BigInt(y)
	return x, y
}

func (g *BJJ) SetPoint(x, y *big.Int) curve.Point {
	g.inner.X.SetBigInt(x)
	g.inner.Y.SetBigInt(y)
	return g
}

func (g *BJJ) Type() string {
	return CurveType
}
