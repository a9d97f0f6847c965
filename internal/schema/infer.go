package schema

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// SampleCap bounds how many non-null values Infer looks at.
const SampleCap = 100

// DatePolicy fixes how many leading values the date checks look at and the
// match ratio they must exceed.
type DatePolicy struct {
	Window    int
	Threshold float64
}

var (
	// DetectorPolicy is used when emitting DDL and fingerprinting.
	DetectorPolicy = DatePolicy{Window: 10, Threshold: 0.8}
	// UploadPolicy is used when materializing tables.
	UploadPolicy = DatePolicy{Window: 20, Threshold: 0.7}
)

var (
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`),
		regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`),
		regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`),
	}
	dateTimePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(\.\d+)?$`),
		regexp.MustCompile(`^\d{2}/\d{2}/\d{4} \d{2}:\d{2}:\d{2}(\.\d+)?$`),
	}
	decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
)

var boolVocabulary = map[string]struct{}{
	"true": {}, "false": {}, "1": {}, "0": {}, "yes": {}, "no": {}, "y": {}, "n": {},
}

// check is one step of the ordered decision chain. ok=false means the sample
// does not satisfy it and the next check runs.
type check func(values []string, p DatePolicy) (TypeTag, bool)

var chain = []check{
	checkInteger,
	checkDecimal,
	checkDateTime,
	checkDate,
	checkBoolean,
}

// Infer returns the narrowest safe type for a column sample using
// DetectorPolicy. See InferWith.
func Infer(values []string, hint *TypeTag) TypeTag {
	return InferWith(DetectorPolicy, values, hint)
}

// InferWith returns the narrowest safe type for a column sample.
//
// Values are trimmed and empty strings dropped; at most SampleCap survive.
// Checks run in order: integer, decimal, datetime, date, boolean. Text is the
// terminal fallback, so the function never fails. A non-nil hint has its own
// check tried first and is returned when the sample satisfies it.
func InferWith(p DatePolicy, values []string, hint *TypeTag) TypeTag {
	sample := cleanSample(values)
	if len(sample) == 0 {
		return Text(TextDefaultLength)
	}

	if hint != nil {
		if c := checkFor(hint.Kind); c != nil {
			if t, ok := c(sample, p); ok {
				return t
			}
		}
	}

	for _, c := range chain {
		if t, ok := c(sample, p); ok {
			return t
		}
	}
	return TextFor(maxRuneLen(sample))
}

func checkFor(k TypeKind) check {
	switch k {
	case KindSmallInt, KindBigInt:
		return checkInteger
	case KindDecimal:
		return checkDecimal
	case KindDateTime:
		return checkDateTime
	case KindDate:
		return checkDate
	case KindBoolean:
		return checkBoolean
	default:
		return nil
	}
}

func cleanSample(values []string) []string {
	out := make([]string, 0, min(len(values), SampleCap))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
		if len(out) == SampleCap {
			break
		}
	}
	return out
}

// ParseInt is the integer acceptance rule shared with value conversion.
func ParseInt(v string) (int64, bool) {
	n, err := strconv.ParseInt(v, 10, 64)
	return n, err == nil
}

// ParseDecimal is the decimal acceptance rule shared with value conversion.
func ParseDecimal(v string) (float64, bool) {
	if !decimalPattern.MatchString(v) {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func checkInteger(values []string, _ DatePolicy) (TypeTag, bool) {
	lo, hi := int64(math.MaxInt64), int64(math.MinInt64)
	for _, v := range values {
		n, ok := ParseInt(v)
		if !ok {
			return TypeTag{}, false
		}
		lo, hi = min(lo, n), max(hi, n)
	}
	if lo >= math.MinInt32 && hi <= math.MaxInt32 {
		return SmallInt(), true
	}
	return BigInt(), true
}

func checkDecimal(values []string, _ DatePolicy) (TypeTag, bool) {
	for _, v := range values {
		if _, ok := ParseDecimal(v); !ok {
			return TypeTag{}, false
		}
	}
	return DefaultDecimal(), true
}

func checkDateTime(values []string, p DatePolicy) (TypeTag, bool) {
	if matchRatio(values, p.Window, dateTimePatterns) > p.Threshold {
		return DateTime(), true
	}
	return TypeTag{}, false
}

func checkDate(values []string, p DatePolicy) (TypeTag, bool) {
	if matchRatio(values, p.Window, datePatterns) > p.Threshold {
		return Date(), true
	}
	return TypeTag{}, false
}

func checkBoolean(values []string, _ DatePolicy) (TypeTag, bool) {
	distinct := make(map[string]struct{}, 2)
	for _, v := range values {
		k := strings.ToLower(v)
		if _, ok := boolVocabulary[k]; !ok {
			return TypeTag{}, false
		}
		distinct[k] = struct{}{}
		if len(distinct) > 2 {
			return TypeTag{}, false
		}
	}
	return Boolean(), true
}

// matchRatio is the share of the first window values matching any pattern.
func matchRatio(values []string, window int, patterns []*regexp.Regexp) float64 {
	if window <= 0 || window > len(values) {
		window = len(values)
	}
	if window == 0 {
		return 0
	}
	hits := 0
	for _, v := range values[:window] {
		for _, re := range patterns {
			if re.MatchString(v) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(window)
}

func maxRuneLen(values []string) int {
	n := 0
	for _, v := range values {
		n = max(n, utf8.RuneCountInString(v))
	}
	return n
}
