package jobspec

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts standard 5-field cron expressions plus descriptors
// like @daily, matching what the transfer service schedules support.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// intervalUnits accepted in "every N <unit>" schedules.
var intervalUnits = map[string]bool{
	"minutes": true,
	"hours":   true,
	"days":    true,
}

// ValidateSchedule checks a schedule string. Two grammars are accepted:
// a standard cron expression, or the BigQuery interval form
// "every N minutes|hours|days".
func ValidateSchedule(schedule string) error {
	s := strings.TrimSpace(schedule)
	if s == "" {
		return fmt.Errorf("schedule must not be empty")
	}
	if strings.HasPrefix(strings.ToLower(s), "every ") {
		return validateInterval(s)
	}
	if _, err := cronParser.Parse(s); err != nil {
		return fmt.Errorf("schedule must be a cron expression or %q form: %v", "every N hours", err)
	}
	return nil
}

func validateInterval(s string) error {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) != 3 {
		return fmt.Errorf("interval schedule must be %q, got %q", "every N minutes|hours|days", s)
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n <= 0 {
		return fmt.Errorf("interval count must be a positive integer, got %q", fields[1])
	}
	if !intervalUnits[fields[2]] {
		return fmt.Errorf("interval unit must be minutes, hours, or days, got %q", fields[2])
	}
	return nil
}

// NextRuns returns the next n fire times for a cron schedule, starting
// after from. Interval ("every ...") schedules are evaluated by the remote
// service and cannot be previewed locally.
func NextRuns(schedule string, from time.Time, n int) ([]time.Time, error) {
	s := strings.TrimSpace(schedule)
	if strings.HasPrefix(strings.ToLower(s), "every ") {
		return nil, fmt.Errorf("interval schedule %q cannot be previewed locally", s)
	}
	sched, err := cronParser.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("parse schedule: %w", err)
	}

	runs := make([]time.Time, 0, n)
	t := from
	for range n {
		t = sched.Next(t)
		runs = append(runs, t)
	}
	return runs, nil
}
