package scheme

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultText is the scheme used when none is configured: exactly 0 maps
// to class 0 and exactly 1 maps to class 1.
const DefaultText = "0 0 0;1 1 1"

// Range maps every value v with From <= v <= To to Class.
type Range struct {
	From  float64 `yaml:"from" json:"from"`
	To    float64 `yaml:"to" json:"to"`
	Class int64   `yaml:"class" json:"class"`
}

// Contains reports whether v lies inside the range, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.From && v <= r.To
}

// String returns the range in "from to class" notation.
func (r Range) String() string {
	return fmt.Sprintf("%s %s %d", formatBound(r.From), formatBound(r.To), r.Class)
}

// Scheme is an ordered, validated list of ranges. The zero value is an
// empty scheme, which Validate rejects.
type Scheme struct {
	Ranges []Range
}

// New builds a scheme from ranges and validates it.
func New(ranges ...Range) (Scheme, error) {
	s := Scheme{Ranges: append([]Range(nil), ranges...)}
	if err := s.Validate(); err != nil {
		return Scheme{}, err
	}
	return s, nil
}

// MustParse is like Parse but panics on error. Intended for constants
// and tests.
func MustParse(text string) Scheme {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

// Parse reads a scheme in "from to class;from to class" notation.
// Whitespace around ranges and between numbers is ignored, and a
// trailing ";" is tolerated. The parsed scheme is validated.
func Parse(text string) (Scheme, error) {
	var ranges []Range
	for i, part := range strings.Split(text, ";") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return Scheme{}, fmt.Errorf("range %d %q: expected \"from to class\", got %d value(s)", i+1, strings.TrimSpace(part), len(fields))
		}

		from, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return Scheme{}, fmt.Errorf("range %d: invalid lower bound %q: %w", i+1, fields[0], err)
		}
		to, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Scheme{}, fmt.Errorf("range %d: invalid upper bound %q: %w", i+1, fields[1], err)
		}
		class, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return Scheme{}, fmt.Errorf("range %d: invalid output class %q: must be an integer", i+1, fields[2])
		}

		ranges = append(ranges, Range{From: from, To: to, Class: class})
	}
	return New(ranges...)
}

// Validate checks that the scheme is non-empty, that every range has
// finite bounds with From <= To, and that no two ranges overlap by more
// than a shared endpoint.
func (s Scheme) Validate() error {
	if s.IsEmpty() {
		return fmt.Errorf("classification scheme is empty")
	}

	for i, r := range s.Ranges {
		if math.IsNaN(r.From) || math.IsNaN(r.To) || math.IsInf(r.From, 0) || math.IsInf(r.To, 0) {
			return fmt.Errorf("range %d (%s): bounds must be finite numbers", i+1, r)
		}
		if r.From > r.To {
			return fmt.Errorf("range %d (%s): lower bound is greater than upper bound", i+1, r)
		}
	}

	for i := 0; i < len(s.Ranges); i++ {
		for j := i + 1; j < len(s.Ranges); j++ {
			if overlaps(s.Ranges[i], s.Ranges[j]) {
				return fmt.Errorf("range %d (%s) overlaps range %d (%s)", i+1, s.Ranges[i], j+1, s.Ranges[j])
			}
		}
	}
	return nil
}

// overlaps reports whether a and b share more than a single boundary
// point. A degenerate range (From == To) touching another range is an
// overlap, because its only value would be claimed twice.
func overlaps(a, b Range) bool {
	lo := math.Max(a.From, b.From)
	hi := math.Min(a.To, b.To)
	switch {
	case lo > hi:
		return false
	case lo < hi:
		return true
	default:
		return a.From == a.To || b.From == b.To
	}
}

// Lookup returns the class for v and true, or false when v lies outside
// every range. NaN never matches.
func (s Scheme) Lookup(v float64) (int64, bool) {
	for _, r := range s.Ranges {
		if r.Contains(v) {
			return r.Class, true
		}
	}
	return 0, false
}

// Classes returns the distinct output classes in scheme order.
func (s Scheme) Classes() []int64 {
	seen := make(map[int64]bool, len(s.Ranges))
	classes := make([]int64, 0, len(s.Ranges))
	for _, r := range s.Ranges {
		if !seen[r.Class] {
			seen[r.Class] = true
			classes = append(classes, r.Class)
		}
	}
	return classes
}

// IsEmpty reports whether the scheme has no ranges.
func (s Scheme) IsEmpty() bool {
	return len(s.Ranges) == 0
}

// String returns the scheme in the notation accepted by Parse.
func (s Scheme) String() string {
	parts := make([]string, len(s.Ranges))
	for i, r := range s.Ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ";")
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
