package config

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"
)

// Validate performs structural validation of the configuration.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		c.validateLimits(),
		c.validatePlanner(),
		c.validateNotifyPatterns(),
	)
}

func (c *Config) validateLimits() error {
	var errs criterio.FieldErrorsBuilder
	if c.Limits.RecentEvents < 0 {
		errs = errs.Append("limits.recent_events", fmt.Errorf("must not be negative"))
	}
	if c.Limits.RecentRuns < 0 {
		errs = errs.Append("limits.recent_runs", fmt.Errorf("must not be negative"))
	}
	if c.Limits.RecentMessages < 0 {
		errs = errs.Append("limits.recent_messages", fmt.Errorf("must not be negative"))
	}
	return errs.ToError()
}

func (c *Config) validatePlanner() error {
	if c.Planner.Timeout < 0 {
		return criterio.NewFieldErrors("planner.timeout", fmt.Errorf("must not be negative"))
	}
	return nil
}

func (c *Config) validateNotifyPatterns() error {
	var errs criterio.FieldErrorsBuilder
	for i, pattern := range c.NotifyPatterns {
		if !doublestar.ValidatePattern(pattern) {
			errs = errs.Append(fmt.Sprintf("notify_patterns[%d]", i), fmt.Errorf("invalid glob pattern %q", pattern))
		}
	}
	return errs.ToError()
}

// NotifyMatch reports whether the event type matches any configured
// notify pattern.
func (c *Config) NotifyMatch(eventType string) bool {
	for _, pattern := range c.NotifyPatterns {
		if ok, err := doublestar.Match(pattern, eventType); err == nil && ok {
			return true
		}
	}
	return false
}
