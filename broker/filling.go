package broker

// Filling is an order execution policy.
type Filling string

const (
	FillOrKill        Filling = "FOK"
	ImmediateOrCancel Filling = "IOC"
	Return            Filling = "RETURN"
)

// SelectFilling picks FOK when the symbol supports it, then IOC, then
// RETURN.
func SelectFilling(supported []Filling) Filling {
	has := func(f Filling) bool {
		for _, s := range supported {
			if s == f {
				return true
			}
		}
		return false
	}
	switch {
	case has(FillOrKill):
		return FillOrKill
	case has(ImmediateOrCancel):
		return ImmediateOrCancel
	default:
		return Return
	}
}
