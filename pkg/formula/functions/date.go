package functions

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/formulacore/pkg/scalar"
)

// Clock supplies the current instant for TODAY/NOW. Tests substitute a
// fixed clock; production wiring uses time.Now.
var Clock = time.Now

func toTime(s scalar.Scalar) (time.Time, bool) {
	switch s.Kind() {
	case scalar.Date:
		return s.AsTime(), true
	case scalar.Text:
		txt := strings.TrimSpace(s.AsText())
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, txt); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func argTime(args []scalar.Scalar, i int) (time.Time, bool) {
	return toTime(arg(args, i))
}

func fnToday(args []scalar.Scalar) scalar.Scalar {
	now := Clock().UTC()
	return scalar.DateVal(now.Year(), int(now.Month()), now.Day())
}

func fnNow(args []scalar.Scalar) scalar.Scalar {
	now := Clock().UTC()
	return scalar.DateTimeVal(now.Year(), int(now.Month()), now.Day(), now.Hour(), now.Minute(), now.Second())
}

func fnDate(args []scalar.Scalar) scalar.Scalar {
	y := int(argNum(args, 0))
	m := int(argNum(args, 1))
	d := int(argNum(args, 2))
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return scalar.DateVal(t.Year(), int(t.Month()), t.Day())
}

func fnYear(args []scalar.Scalar) scalar.Scalar {
	t, ok := argTime(args, 0)
	if !ok {
		return scalar.NumberVal(0)
	}
	return scalar.NumberVal(float64(t.Year()))
}

func fnMonth(args []scalar.Scalar) scalar.Scalar {
	t, ok := argTime(args, 0)
	if !ok {
		return scalar.NumberVal(0)
	}
	return scalar.NumberVal(float64(t.Month()))
}

func fnDay(args []scalar.Scalar) scalar.Scalar {
	t, ok := argTime(args, 0)
	if !ok {
		return scalar.NumberVal(0)
	}
	return scalar.NumberVal(float64(t.Day()))
}

func fnHour(args []scalar.Scalar) scalar.Scalar {
	t, ok := argTime(args, 0)
	if !ok {
		return scalar.NumberVal(0)
	}
	return scalar.NumberVal(float64(t.Hour()))
}

func fnMinute(args []scalar.Scalar) scalar.Scalar {
	t, ok := argTime(args, 0)
	if !ok {
		return scalar.NumberVal(0)
	}
	return scalar.NumberVal(float64(t.Minute()))
}

func fnSecond(args []scalar.Scalar) scalar.Scalar {
	t, ok := argTime(args, 0)
	if !ok {
		return scalar.NumberVal(0)
	}
	return scalar.NumberVal(float64(t.Second()))
}

// fnWeekday returns 1 (Sunday) through 7 (Saturday), the spreadsheet
// convention.
func fnWeekday(args []scalar.Scalar) scalar.Scalar {
	t, ok := argTime(args, 0)
	if !ok {
		return scalar.NumberVal(0)
	}
	return scalar.NumberVal(float64(int(t.Weekday()) + 1))
}

// fnDateAdd adds a signed count of units ("days", "months", "years",
// "hours", "minutes") to a date.
func fnDateAdd(args []scalar.Scalar) scalar.Scalar {
	t, ok := argTime(args, 0)
	if !ok {
		return scalar.EmptyVal
	}
	n := int(argNum(args, 1))
	unit := upperTrim(argText(args, 2))
	var out time.Time
	switch unit {
	case "YEAR", "YEARS":
		out = t.AddDate(n, 0, 0)
	case "MONTH", "MONTHS":
		out = t.AddDate(0, n, 0)
	case "DAY", "DAYS":
		out = t.AddDate(0, 0, n)
	case "HOUR", "HOURS":
		out = t.Add(time.Duration(n) * time.Hour)
	case "MINUTE", "MINUTES":
		out = t.Add(time.Duration(n) * time.Minute)
	default:
		out = t.AddDate(0, 0, n)
	}
	return scalar.FromTime(out, arg(args, 0).HasTime())
}

// fnDays returns the whole-day difference end - start.
func fnDays(args []scalar.Scalar) scalar.Scalar {
	end, ok1 := argTime(args, 0)
	start, ok2 := argTime(args, 1)
	if !ok1 || !ok2 {
		return scalar.NumberVal(0)
	}
	diff := end.Sub(start)
	return scalar.NumberVal(float64(int(diff.Hours() / 24)))
}

func fnEomonth(args []scalar.Scalar) scalar.Scalar {
	t, ok := argTime(args, 0)
	if !ok {
		return scalar.EmptyVal
	}
	months := 0
	if len(args) > 1 {
		months = int(argNum(args, 1))
	}
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	firstNext := firstOfMonth.AddDate(0, months+1, 0)
	last := firstNext.AddDate(0, 0, -1)
	return scalar.DateVal(last.Year(), int(last.Month()), last.Day())
}

// fnIsoWeekNum returns the ISO-8601 week number: the week containing the
// year's first Thursday is week 1.
func fnIsoWeekNum(args []scalar.Scalar) scalar.Scalar {
	t, ok := argTime(args, 0)
	if !ok {
		return scalar.NumberVal(0)
	}
	_, week := t.ISOWeek()
	return scalar.NumberVal(float64(week))
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

// fnWorkdays counts working days (Mon-Fri) from start to end,
// inclusive of both endpoints, treating Saturday and Sunday as
// non-working.
func fnWorkdays(args []scalar.Scalar) scalar.Scalar {
	start, ok1 := argTime(args, 0)
	end, ok2 := argTime(args, 1)
	if !ok1 || !ok2 {
		return scalar.NumberVal(0)
	}
	if end.Before(start) {
		start, end = end, start
	}
	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !isWeekend(d) {
			count++
		}
	}
	return scalar.NumberVal(float64(count))
}

// fnWorkday returns the date n working days after start, skipping
// weekends. n may be negative to count backward.
func fnWorkday(args []scalar.Scalar) scalar.Scalar {
	start, ok := argTime(args, 0)
	if !ok {
		return scalar.EmptyVal
	}
	n := int(argNum(args, 1))
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	d := start
	for n > 0 {
		d = d.AddDate(0, 0, step)
		if !isWeekend(d) {
			n--
		}
	}
	return scalar.DateVal(d.Year(), int(d.Month()), d.Day())
}

// dateTokens are matched longest-first so e.g. "MMMM" is never split
// into two "MM" matches.
var dateTokens = []string{
	"YYYY", "dddd", "MMMM", "ddd", "MMM", "DD", "MM", "HH", "hh", "mm", "ss",
	"YY", "Do", "D", "M", "H", "h", "m", "s", "A", "a",
}

func init() {
	sort.Slice(dateTokens, func(i, j int) bool { return len(dateTokens[i]) > len(dateTokens[j]) })
}

func ordinalSuffix(d int) string {
	if d >= 11 && d <= 13 {
		return "th"
	}
	switch d % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

func formatDatePattern(t time.Time, pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		matched := ""
		for _, tok := range dateTokens {
			if strings.HasPrefix(pattern[i:], tok) {
				matched = tok
				break
			}
		}
		if matched == "" {
			b.WriteByte(pattern[i])
			i++
			continue
		}
		b.WriteString(renderToken(t, matched))
		i += len(matched)
	}
	return b.String()
}

func renderToken(t time.Time, tok string) string {
	switch tok {
	case "YYYY":
		return fmt.Sprintf("%04d", t.Year())
	case "YY":
		return fmt.Sprintf("%02d", t.Year()%100)
	case "MMMM":
		return t.Month().String()
	case "MMM":
		return t.Month().String()[:3]
	case "MM":
		return fmt.Sprintf("%02d", int(t.Month()))
	case "M":
		return strconv.Itoa(int(t.Month()))
	case "dddd":
		return t.Weekday().String()
	case "ddd":
		return t.Weekday().String()[:3]
	case "Do":
		return strconv.Itoa(t.Day()) + ordinalSuffix(t.Day())
	case "DD":
		return fmt.Sprintf("%02d", t.Day())
	case "D":
		return strconv.Itoa(t.Day())
	case "HH":
		return fmt.Sprintf("%02d", t.Hour())
	case "H":
		return strconv.Itoa(t.Hour())
	case "hh":
		return fmt.Sprintf("%02d", hour12(t.Hour()))
	case "h":
		return strconv.Itoa(hour12(t.Hour()))
	case "mm":
		return fmt.Sprintf("%02d", t.Minute())
	case "m":
		return strconv.Itoa(t.Minute())
	case "ss":
		return fmt.Sprintf("%02d", t.Second())
	case "s":
		return strconv.Itoa(t.Second())
	case "A":
		if t.Hour() < 12 {
			return "AM"
		}
		return "PM"
	case "a":
		if t.Hour() < 12 {
			return "am"
		}
		return "pm"
	default:
		return ""
	}
}

func hour12(h int) int {
	h = h % 12
	if h == 0 {
		h = 12
	}
	return h
}

func fnFormatDate(args []scalar.Scalar) scalar.Scalar {
	t, ok := argTime(args, 0)
	if !ok {
		return scalar.TextVal("")
	}
	pattern := argText(args, 1)
	return scalar.TextVal(formatDatePattern(t, pattern))
}

var dateFuncs = map[string]func([]scalar.Scalar) scalar.Scalar{
	"TODAY":       fnToday,
	"NOW":         fnNow,
	"DATE":        fnDate,
	"YEAR":        fnYear,
	"MONTH":       fnMonth,
	"DAY":         fnDay,
	"HOUR":        fnHour,
	"MINUTE":      fnMinute,
	"SECOND":      fnSecond,
	"WEEKDAY":     fnWeekday,
	"DATEADD":     fnDateAdd,
	"DAYS":        fnDays,
	"EOMONTH":     fnEomonth,
	"ISOWEEKNUM":  fnIsoWeekNum,
	"WORKDAYS":    fnWorkdays,
	"WORKDAY":     fnWorkday,
	"FORMAT_DATE": fnFormatDate,
}
