package core

// Completeness summarizes how control leaves a statement.
type Completeness uint8

const (
	Falls    Completeness = iota //control may reach the next statement
	Returns                      //every path executes a return
	Diverges                     //no path falls through, some leave via break or continue
)

func (c Completeness) String() string {
	switch c {
	case Falls:
		return "falls"
	case Returns:
		return "returns"
	case Diverges:
		return "diverges"
	}
	return "?"
}

// Then composes two statements executed in sequence, the last non-Falls result wins.
func (c Completeness) Then(next Completeness) Completeness {
	if next == Falls {
		return c
	}
	return next
}

// Meet joins the results of two alternative branches.
func (c Completeness) Meet(other Completeness) Completeness {
	switch {
	case c == Falls || other == Falls:
		return Falls
	case c == Returns && other == Returns:
		return Returns
	default:
		return Diverges
	}
}
