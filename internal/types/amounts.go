package types

// SplitAmount decomposes an amount into powers of two, ascending. Mint
// keysets sign one blinded message per power-of-two denomination.
func SplitAmount(amount uint64) []uint64 {
	var amounts []uint64
	for pos := 0; amount > 0; pos++ {
		if amount&1 == 1 {
			amounts = append(amounts, uint64(1)<<pos)
		}
		amount >>= 1
	}
	return amounts
}

// SumAmounts returns the total of the given denominations.
func SumAmounts(amounts []uint64) uint64 {
	var total uint64
	for _, a := range amounts {
		total += a
	}
	return total
}
