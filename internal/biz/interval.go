package biz

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidInterval 时间间隔无法解析
var ErrInvalidInterval = errors.New("invalid recurrence interval")

// 相对时间表达式支持的单位
var relativeUnits = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
	"week":   7 * 24 * time.Hour,
	"month":  30 * 24 * time.Hour,
	"year":   365 * 24 * time.Hour,
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// NormalizeInterval 把时间间隔值规范化为 time.Duration
//
// 支持的格式:
//   - 非零整数（秒数）
//   - ISO-8601 时长字符串，例如 "P1D"、"PT3600S"
//   - 相对时间表达式，例如 "2 weeks"、"next monday"
//   - 已经规范化的 time.Duration
//
// 月按 30 天、年按 365 天折算，与落库的秒数口径保持一致。
func NormalizeInterval(value interface{}) (time.Duration, error) {
	return NormalizeIntervalAt(value, time.Now())
}

// NormalizeIntervalAt 以 ref 为基准时刻规范化时间间隔
//
// 星期类相对表达式（"next monday"）的时长取决于基准时刻，
// 需要可注入时钟的调用方用这个入口。
func NormalizeIntervalAt(value interface{}, ref time.Time) (time.Duration, error) {
	switch v := value.(type) {
	case time.Duration:
		if v == 0 {
			return 0, fmt.Errorf("%w: empty value", ErrInvalidInterval)
		}
		return v, nil
	case int:
		return secondsToDuration(int64(v))
	case int32:
		return secondsToDuration(int64(v))
	case int64:
		return secondsToDuration(v)
	case string:
		return normalizeIntervalString(v, ref)
	case nil:
		return 0, fmt.Errorf("%w: empty value", ErrInvalidInterval)
	}
	return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidInterval, value)
}

// SecondsOf 返回时长对应的秒数
func SecondsOf(d time.Duration) int64 {
	return int64(d / time.Second)
}

// IsValidInterval 判断时间间隔值是否可解析
func IsValidInterval(value interface{}) bool {
	_, err := NormalizeInterval(value)
	return err == nil
}

// FromNow 规范化时间间隔并加到当前时间上
func FromNow(clock Clock, value interface{}) (time.Time, error) {
	now := clock.Now()
	d, err := NormalizeIntervalAt(value, now)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(d), nil
}

func secondsToDuration(seconds int64) (time.Duration, error) {
	if seconds == 0 {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidInterval)
	}
	return time.Duration(seconds) * time.Second, nil
}

func normalizeIntervalString(s string, ref time.Time) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidInterval)
	}

	if seconds, err := strconv.ParseInt(s, 10, 64); err == nil {
		return secondsToDuration(seconds)
	}

	if strings.HasPrefix(s, "P") || strings.HasPrefix(s, "p") {
		return parseISODuration(s)
	}

	return parseRelativeInterval(s, ref)
}

// parseISODuration 解析 ISO-8601 时长字符串 P[nY][nM][nW][nD][T[nH][nM][nS]]
func parseISODuration(s string) (time.Duration, error) {
	orig := s
	s = strings.ToUpper(s)[1:] // strip "P"
	if s == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, orig)
	}

	datePart := s
	timePart := ""
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		datePart, timePart = s[:i], s[i+1:]
		if timePart == "" {
			return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, orig)
		}
	}

	dateUnits := map[byte]time.Duration{
		'Y': 365 * 24 * time.Hour,
		'M': 30 * 24 * time.Hour,
		'W': 7 * 24 * time.Hour,
		'D': 24 * time.Hour,
	}
	timeUnits := map[byte]time.Duration{
		'H': time.Hour,
		'M': time.Minute,
		'S': time.Second,
	}

	var total time.Duration
	parse := func(part string, units map[byte]time.Duration) error {
		num := ""
		for i := 0; i < len(part); i++ {
			c := part[i]
			if c >= '0' && c <= '9' {
				num += string(c)
				continue
			}
			unit, ok := units[c]
			if !ok || num == "" {
				return fmt.Errorf("%w: %q", ErrInvalidInterval, orig)
			}
			n, err := strconv.ParseInt(num, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %q", ErrInvalidInterval, orig)
			}
			total += time.Duration(n) * unit
			num = ""
		}
		if num != "" {
			return fmt.Errorf("%w: %q", ErrInvalidInterval, orig)
		}
		return nil
	}

	if err := parse(datePart, dateUnits); err != nil {
		return 0, err
	}
	if err := parse(timePart, timeUnits); err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, orig)
	}
	return total, nil
}

// parseRelativeInterval 解析相对时间表达式，例如 "3 days"、"next monday"、"tomorrow"
func parseRelativeInterval(s string, ref time.Time) (time.Duration, error) {
	fields := strings.Fields(strings.ToLower(s))

	switch len(fields) {
	case 1:
		if fields[0] == "tomorrow" {
			return 24 * time.Hour, nil
		}
	case 2:
		if fields[0] == "next" {
			if wd, ok := weekdays[fields[1]]; ok {
				return untilNextWeekday(ref, wd), nil
			}
			if unit, ok := relativeUnits[strings.TrimSuffix(fields[1], "s")]; ok {
				return unit, nil
			}
			break
		}
		n, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil || n == 0 {
			break
		}
		if unit, ok := relativeUnits[strings.TrimSuffix(fields[1], "s")]; ok {
			return time.Duration(n) * unit, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, s)
}

// untilNextWeekday 计算到下一个指定星期几（同一时刻）的时长
func untilNextWeekday(from time.Time, wd time.Weekday) time.Duration {
	days := (int(wd) - int(from.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}
