package column

import (
	"testing"

	"github.com/leapstack-labs/formulacore/internal/schema"
	"github.com/stretchr/testify/assert"
)

func TestExtract_Number(t *testing.T) {
	got := Extract(schema.KindNumber, RawValue{Number: 42, HasNumber: true}, nil)
	assert.Equal(t, "42", got.Display())
}

func TestExtract_NumberFallsBackToParsedText(t *testing.T) {
	got := Extract(schema.KindNumber, RawValue{Text: "3.5"}, nil)
	assert.Equal(t, "3.5", got.Display())
}

func TestExtract_NumberDefaultsToZero(t *testing.T) {
	got := Extract(schema.KindNumber, RawValue{Text: "not a number"}, nil)
	assert.Equal(t, "0", got.Display())
}

func TestExtract_DateWithTime(t *testing.T) {
	got := Extract(schema.KindDate, RawValue{Date: "2026-07-30", Time: "14:05:00"}, nil)
	assert.Equal(t, "2026-07-30 14:05:00", got.Display())
}

func TestExtract_Hour(t *testing.T) {
	got := Extract(schema.KindHour, RawValue{Time: "9:5"}, nil)
	assert.Equal(t, "09:05", got.Display())
}

func TestExtract_DropdownJoinsLabels(t *testing.T) {
	got := Extract(schema.KindDropdown, RawValue{Labels: []string{"a", "b"}}, nil)
	assert.Equal(t, "a, b", got.Display())
}

func TestExtract_CheckboxTrue(t *testing.T) {
	got := Extract(schema.KindCheckbox, RawValue{Checkbox: true, HasCheckbox: true}, nil)
	assert.Equal(t, "true", got.Display())
}

func TestExtract_CheckboxAbsentIsFalse(t *testing.T) {
	got := Extract(schema.KindCheckbox, RawValue{}, nil)
	assert.Equal(t, "false", got.Display())
}

func TestExtract_Timeline(t *testing.T) {
	got := Extract(schema.KindTimeline, RawValue{TimelineFrom: "2026-01-01", TimelineTo: "2026-01-05"}, nil)
	assert.Equal(t, "2026-01-01 - 2026-01-05", got.Display())
}

func TestExtract_TimeTracking(t *testing.T) {
	got := Extract(schema.KindTimeTracking, RawValue{TimeTrackingSeconds: 5400}, nil)
	assert.Equal(t, "1:30", got.Display())
}

func TestExtract_MirrorNumericDisplayValue(t *testing.T) {
	mirror := &schema.MirrorSettings{Function: schema.AggSum}
	got := Extract(schema.KindMirror, RawValue{DisplayValue: "10, 20, 30", HasDisplayValue: true}, mirror)
	assert.Equal(t, "60", got.Display())
}

func TestExtract_MirrorSingleNumberDisplayValueSkipsCountAggregation(t *testing.T) {
	mirror := &schema.MirrorSettings{Function: schema.AggCount}
	got := Extract(schema.KindMirror, RawValue{DisplayValue: "42", HasDisplayValue: true}, mirror)
	assert.Equal(t, "42", got.Display(), "a single precomputed number is returned as-is, never counted as a one-element list")
}

func TestExtract_MirrorLinkedNamesJoined(t *testing.T) {
	got := Extract(schema.KindMirror, RawValue{MirrorLinkedItemNames: []string{"Project A", "Project B"}}, nil)
	assert.Equal(t, "Project A, Project B", got.Display())
}

func TestExtract_MirrorTextDisplayValue(t *testing.T) {
	got := Extract(schema.KindMirror, RawValue{DisplayValue: "Project A", HasDisplayValue: true}, nil)
	assert.Equal(t, "Project A", got.Display())
}

func TestExtract_UnknownKindFallsBackToText(t *testing.T) {
	got := Extract(schema.KindUnknown, RawValue{Text: "raw"}, nil)
	assert.Equal(t, "raw", got.Display())
}

func TestDefaultForKind_NumericIsZero(t *testing.T) {
	assert.Equal(t, "0", DefaultForKind(schema.KindNumber, nil).Display())
}

func TestDefaultForKind_TextLikeIsEmpty(t *testing.T) {
	assert.True(t, DefaultForKind(schema.KindText, nil).IsEmpty())
}

func TestDefaultForKind_MirrorNumericAggregationIsZero(t *testing.T) {
	mirror := &schema.MirrorSettings{Function: schema.AggAvg}
	assert.Equal(t, "0", DefaultForKind(schema.KindMirror, mirror).Display())
}

func TestDefaultForKind_MirrorNoneAggregationIsEmpty(t *testing.T) {
	mirror := &schema.MirrorSettings{Function: schema.AggNone}
	assert.True(t, DefaultForKind(schema.KindMirror, mirror).IsEmpty())
}

func TestAggregate(t *testing.T) {
	nums := []float64{10, 20, 30}
	assert.Equal(t, 60.0, Aggregate(nums, schema.AggSum))
	assert.Equal(t, 20.0, Aggregate(nums, schema.AggAvg))
	assert.Equal(t, float64(3), Aggregate(nums, schema.AggCount))
	assert.Equal(t, 10.0, Aggregate(nums, schema.AggMin))
	assert.Equal(t, 30.0, Aggregate(nums, schema.AggMax))
}

func TestParseNumericList_RejectsNonNumeric(t *testing.T) {
	_, ok := ParseNumericList("10, abc, 30")
	assert.False(t, ok)
}
