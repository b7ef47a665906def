package models

import "time"

// fixed schedule cadences allowed on a category, in minutes
const (
	ScheduleIntervalHourly  = 60
	ScheduleIntervalDaily   = 1440
	ScheduleIntervalMinute  = 1
	ScheduleIntervalHalfHour = 30
)

// AllowedScheduleIntervals is the fixed set a category's schedule_interval_minutes must belong to.
var AllowedScheduleIntervals = map[int]bool{
	ScheduleIntervalMinute:   true,
	ScheduleIntervalHalfHour: true,
	ScheduleIntervalHourly:   true,
	ScheduleIntervalDaily:    true,
}

// Category is an operator-defined topic: a set of inclusion/exclusion
// keywords, optional recurring schedule, and optional crawl-period cap.
type Category struct {
	ID                     string    `json:"id" badgerhold:"key"`
	Name                   string    `json:"name" badgerhold:"unique" validate:"required,max=255"`
	Keywords               []string  `json:"keywords" validate:"required,min=1,max=20,dive,max=100"`
	ExcludeKeywords        []string  `json:"exclude_keywords" validate:"max=20,dive,max=100"`
	Language               string    `json:"language"`
	Country                string    `json:"country"`
	IsActive               bool      `json:"is_active" badgerhold:"index"`
	ScheduleEnabled        bool      `json:"schedule_enabled"`
	ScheduleIntervalMin    int       `json:"schedule_interval_minutes" validate:"omitempty,oneof=1 30 60 1440"`
	LastScheduledRunAt     *time.Time `json:"last_scheduled_run_at,omitempty"`
	NextScheduledRunAt     *time.Time `json:"next_scheduled_run_at,omitempty" badgerhold:"index"`
	CrawlPeriod            string    `json:"crawl_period,omitempty" validate:"omitempty,crawlperiod"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Validate checks the cross-field invariants of §3 that struct tags cannot express.
func (c *Category) Validate() error {
	if c.ScheduleEnabled && !c.IsActive {
		return errValidation("schedule may only be enabled on an active category")
	}
	if c.ScheduleEnabled && (c.NextScheduledRunAt == nil) {
		return errValidation("next_scheduled_run_at must be set when schedule_enabled")
	}
	if !c.ScheduleEnabled && c.NextScheduledRunAt != nil {
		return errValidation("next_scheduled_run_at must be null when schedule is disabled")
	}
	if c.ScheduleEnabled && !AllowedScheduleIntervals[c.ScheduleIntervalMin] {
		return errValidation("schedule_interval_minutes must be one of 1, 30, 60, 1440")
	}
	seen := map[string]bool{}
	for _, k := range c.Keywords {
		if seen[k] {
			return errValidation("duplicate keyword: " + k)
		}
		seen[k] = true
	}
	return nil
}
