package services

// FeeCalculator computes platform- and payee-side fees from whole-number
// percentages. Amounts are minor units, so integer division gives the
// floor the ledger expects.
type FeeCalculator struct {
	PlatformPercent int64
	PayeePercent    int64
}

// PlatformFee is charged on top of the amount the brand pays in.
func (f FeeCalculator) PlatformFee(amount int64) int64 {
	if amount <= 0 || f.PlatformPercent <= 0 {
		return 0
	}
	return amount * f.PlatformPercent / 100
}

// PayeeFee is deducted from the amount released to the creator.
func (f FeeCalculator) PayeeFee(amount int64) int64 {
	if amount <= 0 || f.PayeePercent <= 0 {
		return 0
	}
	return amount * f.PayeePercent / 100
}
