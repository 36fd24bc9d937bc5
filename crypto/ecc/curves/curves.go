package curves

import (
	"fmt"

	"github.com/vocdoni/confidential-counter/crypto/ecc"
	bjj_gnark "github.com/vocdoni/confidential-counter/crypto/ecc/bjj_gnark"
	bjj_iden3 "github.com/vocdoni/confidential-counter/crypto/ecc/bjj_iden3"
	"github.com/vocdoni/confidential-counter/crypto/ecc/bn254"
)

const (
	CurveTypeBabyJubJub      = bjj_iden3.CurveType
	CurveTypeBabyJubJubGnark = bjj_gnark.CurveType
	CurveTypeBN254           = bn254.CurveType

	// DefaultCurve is the curve used for new counters unless configured.
	DefaultCurve = CurveTypeBN254
)

// Curves returns the list of supported curve types.
func Curves() []string {
	return []string{CurveTypeBN254, CurveTypeBabyJubJub, CurveTypeBabyJubJubGnark}
}

// IsValid reports whether curveType is supported.
func IsValid(curveType string) bool {
	for _, c := range Curves() {
		if c == curveType {
			return true
		}
	}
	return false
}

// New creates a new instance of a Curve implementation based on the provided
// type string. The supported types are defined as constants in this package.
func New(curveType string) (ecc.Point, error) {
	switch curveType {
	case CurveTypeBN254:
		return bn254.New(), nil
	case CurveTypeBabyJubJub:
		return bjj_iden3.New(), nil
	case CurveTypeBabyJubJubGnark:
		return bjj_gnark.New(), nil
	default:
		return nil, fmt.Errorf("unsupported curve type: %s", curveType)
	}
}
