package core

import (
	crand "crypto/rand"
	"math/big"
	"sort"
)

// selectValidator draws a stake-weighted validator address from stakes.
// If the total stake is zero, DefaultValidator is returned. The draw is a
// uniform integer in [0, total) taken from crypto/rand via math/big, the
// same cryptographically seeded pattern the teacher's peer sampling code
// uses — never math/rand. Iteration order over the stake table is the
// sorted address list, so selection is deterministic given the draw:
// selection probability per address is stake/total, ties (impossible here
// since addresses are unique keys) would break by iteration order.
func selectValidator(stakes map[Address]uint64) Address {
	var total uint64
	for _, s := range stakes {
		total += s
	}
	if total == 0 {
		return DefaultValidator
	}

	addrs := make([]Address, 0, len(stakes))
	for a := range stakes {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	p, err := crand.Int(crand.Reader, new(big.Int).SetUint64(total))
	if err != nil {
		return DefaultValidator
	}
	pick := p.Uint64()

	var cumulative uint64
	for _, a := range addrs {
		cumulative += stakes[a]
		if pick < cumulative {
			return a
		}
	}
	return DefaultValidator
}
