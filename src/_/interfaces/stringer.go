package interfaces

// Stringer mirrors fmt.Stringer; kept as its own tiny interface so
// packages that only need a textual representation (error values, ids)
// don't have to import fmt for the constraint.
type Stringer interface {
	String() string
}
