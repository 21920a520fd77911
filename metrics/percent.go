package metrics

import (
	"fmt"
	"strconv"
)

// NotApplicable is how an undefined Percent is rendered.
const NotApplicable = "N/A"

// Percent is a share in [0, 100]. It is undefined (not zero) when the
// whole it is taken of is zero.
type Percent struct {
	Value float64
	Valid bool
}

// Share returns part/total as a Percent.
func Share(part, total int) Percent {
	if total <= 0 {
		return Percent{}
	}
	return Percent{Value: 100 * float64(part) / float64(total), Valid: true}
}

func (p Percent) String() string {
	if !p.Valid {
		return NotApplicable
	}
	return fmt.Sprintf("%.1f%%", p.Value)
}

func (p Percent) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte(strconv.Quote(NotApplicable)), nil
	}
	return []byte(strconv.FormatFloat(p.Value, 'f', 4, 64)), nil
}

func (p Percent) MarshalYAML() (any, error) {
	if !p.Valid {
		return NotApplicable, nil
	}
	return p.Value, nil
}
