package lra

import "math/big"

// delta is the value c + k*delta for an infinitesimal positive delta
type delta struct {
	c *big.Rat
	k *big.Rat
}

func zero() delta {
	return delta{c: new(big.Rat), k: new(big.Rat)}
}

func constant(c *big.Rat) delta {
	return delta{c: new(big.Rat).Set(c), k: new(big.Rat)}
}

// strictUpper is the largest value below bound, strictLower the smallest above it
func strictUpper(bound *big.Rat) delta {
	return delta{c: new(big.Rat).Set(bound), k: big.NewRat(-1, 1)}
}

func strictLower(bound *big.Rat) delta {
	return delta{c: new(big.Rat).Set(bound), k: big.NewRat(1, 1)}
}

func (d delta) add(other delta) delta {
	return delta{c: new(big.Rat).Add(d.c, other.c), k: new(big.Rat).Add(d.k, other.k)}
}

func (d delta) sub(other delta) delta {
	return delta{c: new(big.Rat).Sub(d.c, other.c), k: new(big.Rat).Sub(d.k, other.k)}
}

func (d delta) scale(factor *big.Rat) delta {
	return delta{c: new(big.Rat).Mul(d.c, factor), k: new(big.Rat).Mul(d.k, factor)}
}

func (d delta) div(divisor *big.Rat) delta {
	return d.scale(new(big.Rat).Inv(divisor))
}

// cmp orders values lexicographically, which is their order for every small enough delta
func (d delta) cmp(other delta) int {
	if c := d.c.Cmp(other.c); c != 0 {
		return c
	}
	return d.k.Cmp(other.k)
}

// at makes the value concrete for the given delta
func (d delta) at(epsilon *big.Rat) *big.Rat {
	value := new(big.Rat).Mul(d.k, epsilon)
	return value.Add(value, d.c)
}
