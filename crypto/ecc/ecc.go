// Package ecc defines the elliptic curve point abstraction used by the
// encryption layer. Implementations live in the sub packages and are
// instantiated through curves.New.
package ecc

import "math/big"

// Point is an element of a prime order elliptic curve group. Methods that
// take operands store the result in the receiver.
type Point interface {
	// New returns a new point on the same curve, set to the identity.
	New() Point
	// Order returns the order of the group generated by the base point.
	Order() *big.Int
	Add(a, b Point)
	// SafeAdd is Add guarded by the receiver's lock.
	SafeAdd(a, b Point)
	ScalarMult(a Point, scalar *big.Int)
	ScalarBaseMult(scalar *big.Int)
	Neg(a Point)
	Set(a Point)
	SetZero()
	SetGenerator()
	Equal(a Point) bool
	// Marshal returns a fixed size binary encoding of the point.
	Marshal() []byte
	Unmarshal(buf []byte) error
	// MarshalSize is the length of the slice returned by Marshal.
	MarshalSize() int
	Point() (*big.Int, *big.Int)
	SetPoint(x, y *big.Int) Point
	String() string
	Type() string
}
