package column

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/formulacore/internal/schema"
	"github.com/leapstack-labs/formulacore/pkg/scalar"
)

// Extractor maps a RawValue to a Scalar for one ColumnKind.
type Extractor func(raw RawValue, mirror *schema.MirrorSettings) scalar.Scalar

var extractors = map[schema.ColumnKind]Extractor{
	schema.KindText:          extractTextLike,
	schema.KindLongText:      extractTextLike,
	schema.KindStatus:        extractTextLike,
	schema.KindCountry:       extractTextLike,
	schema.KindEmail:         extractTextLike,
	schema.KindLink:          extractTextLike,
	schema.KindPhone:         extractTextLike,
	schema.KindLocation:      extractTextLike,
	schema.KindItemID:        extractTextLike,
	schema.KindCreationLog:   extractTextLike,
	schema.KindLastUpdated:   extractTextLike,
	schema.KindWorldClock:    extractTextLike,
	schema.KindTime:          extractTextLike,
	schema.KindWeek:          extractTextLike,
	schema.KindRating:        extractNumber,
	schema.KindVote:          extractNumber,
	schema.KindNumber:        extractNumber,
	schema.KindDate:          extractDate,
	schema.KindHour:          extractHour,
	schema.KindDropdown:      extractLabels,
	schema.KindPeople:        extractLabels,
	schema.KindBoardRelation: extractLabels,
	schema.KindDependency:    extractLabels,
	schema.KindCheckbox:      extractCheckbox,
	schema.KindTimeline:      extractTimeline,
	schema.KindTimeTracking:  extractTimeTracking,
	schema.KindMirror:        extractMirror,
}

// Extract normalises a raw payload into a Scalar for the given kind.
// Kinds with no registered handler (including KindUnknown and
// KindFormula, which never reaches the extractor) fall back to raw text.
func Extract(kind schema.ColumnKind, raw RawValue, mirror *schema.MirrorSettings) scalar.Scalar {
	if fn, ok := extractors[kind]; ok {
		return fn(raw, mirror)
	}
	return extractTextLike(raw, mirror)
}

// DefaultForKind is the smart default used when a column's value is
// altogether absent: empty for text-like kinds, 0 for numeric kinds and
// for mirrors under a numeric aggregation.
func DefaultForKind(kind schema.ColumnKind, mirror *schema.MirrorSettings) scalar.Scalar {
	switch kind {
	case schema.KindNumber, schema.KindRating, schema.KindVote, schema.KindTimeTracking:
		return scalar.NumberVal(0)
	case schema.KindMirror:
		if mirror != nil && isNumericAggregation(mirror.Function) {
			return scalar.NumberVal(0)
		}
		return scalar.EmptyVal
	default:
		return scalar.EmptyVal
	}
}

// IsNumericAggregation reports whether fn produces a numeric result,
// as opposed to AggNone's text-join behaviour.
func IsNumericAggregation(fn schema.AggregationFn) bool { return isNumericAggregation(fn) }

func isNumericAggregation(fn schema.AggregationFn) bool {
	switch fn {
	case schema.AggSum, schema.AggAvg, schema.AggAverage, schema.AggCount, schema.AggMin, schema.AggMax:
		return true
	default:
		return false
	}
}

func extractTextLike(raw RawValue, _ *schema.MirrorSettings) scalar.Scalar {
	if raw.HasDisplayValue && raw.DisplayValue != "" {
		return scalar.TextVal(raw.DisplayValue)
	}
	return scalar.TextVal(raw.Text)
}

func extractNumber(raw RawValue, _ *schema.MirrorSettings) scalar.Scalar {
	if raw.HasNumber {
		return scalar.NumberVal(raw.Number)
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(raw.Text), 64); err == nil {
		return scalar.NumberVal(n)
	}
	return scalar.NumberVal(0)
}

func extractDate(raw RawValue, _ *schema.MirrorSettings) scalar.Scalar {
	if raw.Date == "" {
		return scalar.EmptyVal
	}
	if raw.Time != "" {
		return scalar.TextVal(raw.Date + " " + raw.Time)
	}
	return scalar.TextVal(raw.Date)
}

func extractHour(raw RawValue, _ *schema.MirrorSettings) scalar.Scalar {
	if raw.Time == "" {
		return scalar.EmptyVal
	}
	parts := strings.SplitN(raw.Time, ":", 3)
	hh, mm := "00", "00"
	if len(parts) > 0 {
		if n, err := strconv.Atoi(parts[0]); err == nil {
			hh = fmt.Sprintf("%02d", n)
		}
	}
	if len(parts) > 1 {
		if n, err := strconv.Atoi(parts[1]); err == nil {
			mm = fmt.Sprintf("%02d", n)
		}
	}
	return scalar.TextVal(hh + ":" + mm)
}

func extractLabels(raw RawValue, _ *schema.MirrorSettings) scalar.Scalar {
	if len(raw.Labels) == 0 {
		return scalar.EmptyVal
	}
	return scalar.TextVal(strings.Join(raw.Labels, ", "))
}

func extractCheckbox(raw RawValue, _ *schema.MirrorSettings) scalar.Scalar {
	if !raw.HasCheckbox {
		return scalar.TextVal("false")
	}
	if raw.Checkbox {
		return scalar.TextVal("true")
	}
	return scalar.TextVal("false")
}

func extractTimeline(raw RawValue, _ *schema.MirrorSettings) scalar.Scalar {
	if raw.TimelineFrom == "" && raw.TimelineTo == "" {
		return scalar.EmptyVal
	}
	return scalar.TextVal(raw.TimelineFrom + " - " + raw.TimelineTo)
}

func extractTimeTracking(raw RawValue, _ *schema.MirrorSettings) scalar.Scalar {
	total := raw.TimeTrackingSeconds
	if total == 0 {
		return scalar.TextVal("0:00")
	}
	h := total / 3600
	m := (total % 3600) / 60
	return scalar.TextVal(fmt.Sprintf("%d:%02d", h, m))
}

// extractMirror handles the fast-path case: a mirror's own display-value
// payload, before the resolver falls back to a full deep-mirror fetch.
func extractMirror(raw RawValue, mirror *schema.MirrorSettings) scalar.Scalar {
	if raw.HasDisplayValue && raw.DisplayValue != "" {
		fn := schema.AggNone
		if mirror != nil {
			fn = mirror.Function
		}
		return MirrorDisplayScalar(raw.DisplayValue, fn)
	}
	if len(raw.MirrorLinkedItemNames) > 0 {
		return scalar.TextVal(strings.Join(raw.MirrorLinkedItemNames, ", "))
	}
	return extractTextLike(raw, mirror)
}

// MirrorDisplayScalar interprets a mirror's raw display_value string per
// the platform's three cases: a comma-separated numeric list aggregates
// via fn, a bare single number passes through unaggregated (it is
// already the platform's own computed value, not a list to reduce), and
// anything else is returned as text.
func MirrorDisplayScalar(s string, fn schema.AggregationFn) scalar.Scalar {
	if !strings.Contains(s, ",") {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return scalar.NumberVal(n)
		}
		return scalar.TextVal(s)
	}
	if nums, ok := ParseNumericList(s); ok {
		return scalar.NumberVal(Aggregate(nums, fn))
	}
	return scalar.TextVal(s)
}

// ParseNumericList parses a comma-separated numeric display value (e.g.
// "10, 20, 30"). ok is false if any element fails to parse as a number,
// or the string is empty.
func ParseNumericList(s string) ([]float64, bool) {
	parts := strings.Split(s, ",")
	nums := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, false
		}
		n, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, false
		}
		nums = append(nums, n)
	}
	if len(nums) == 0 {
		return nil, false
	}
	return nums, true
}

// Aggregate applies a mirror's aggregation function to a list of
// numbers. AggNone returns the sum, matching "no function selected"
// degrading to the platform's own default of summing.
func Aggregate(nums []float64, fn schema.AggregationFn) float64 {
	if len(nums) == 0 {
		return 0
	}
	switch fn {
	case schema.AggAvg, schema.AggAverage:
		var total float64
		for _, n := range nums {
			total += n
		}
		return total / float64(len(nums))
	case schema.AggCount:
		return float64(len(nums))
	case schema.AggMin:
		best := nums[0]
		for _, n := range nums[1:] {
			if n < best {
				best = n
			}
		}
		return best
	case schema.AggMax:
		best := nums[0]
		for _, n := range nums[1:] {
			if n > best {
				best = n
			}
		}
		return best
	default:
		var total float64
		for _, n := range nums {
			total += n
		}
		return total
	}
}
