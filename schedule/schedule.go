/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package schedule computes when accrual, application and fee events fire, and the
// boundaries of transaction-limit windows.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

const secondsPerDay = 24 * 60 * 60

// maxHolidayShift bounds how many days a holiday shift may move an event.
const maxHolidayShift = 366

// TimeOfDay is the hour, minute and second an event fires at.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

// Validate checks the fields are within a day.
func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 {
		return fmt.Errorf("hour %d out of range", t.Hour)
	}
	if t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("minute %d out of range", t.Minute)
	}
	if t.Second < 0 || t.Second > 59 {
		return fmt.Errorf("second %d out of range", t.Second)
	}
	return nil
}

// On returns t on the calendar date of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, t.Second, 0, day.Location())
}

// EventSchedule is the declaration of a recurring event handed to the host scheduler.
type EventSchedule struct {
	EventType  string    `json:"event_type"`
	Expression string    `json:"expression"`
	Start      time.Time `json:"start"`
	Next       time.Time `json:"next"`
}

// Parse parses a cron expression with a leading seconds field.
func Parse(expression string) (cron.Schedule, error) {
	s, err := parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule expression %q: %w", expression, err)
	}
	return s, nil
}

// DailyExpression is the cron expression of an event that fires every day at at.
func DailyExpression(at TimeOfDay) string {
	return fmt.Sprintf("%d %d %d * * *", at.Second, at.Minute, at.Hour)
}

// MonthlyExpression is the cron expression of an event on day of every month. Days past
// the 28th are written as the last days the host should consider; the clamped date is
// computed by NextMonthly.
func MonthlyExpression(day int, at TimeOfDay) string {
	if day > 28 {
		return fmt.Sprintf("%d %d %d 28-31 * *", at.Second, at.Minute, at.Hour)
	}
	return fmt.Sprintf("%d %d %d %d * *", at.Second, at.Minute, at.Hour, day)
}

// Next returns the first time expression fires strictly after after.
func Next(expression string, after time.Time) (time.Time, error) {
	s, err := Parse(expression)
	if err != nil {
		return time.Time{}, err
	}
	return s.Next(after), nil
}

// NextDaily returns the next daily event after after.
func NextDaily(after time.Time, at TimeOfDay) (time.Time, error) {
	if err := at.Validate(); err != nil {
		return time.Time{}, err
	}
	return Next(DailyExpression(at), after)
}

// DaysInMonth returns the number of days of month in year.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay returns day, or the last day of the month when the month is shorter.
func ClampDay(year int, month time.Month, day int) int {
	if last := DaysInMonth(year, month); day > last {
		return last
	}
	return day
}

// NextMonthly returns the next monthly event on day after after. A day the month does
// not have falls on the month's last day.
func NextMonthly(after time.Time, day int, at TimeOfDay) (time.Time, error) {
	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("day %d out of range", day)
	}
	if err := at.Validate(); err != nil {
		return time.Time{}, err
	}

	year, month := after.Year(), after.Month()
	for i := 0; i < 2; i++ {
		candidate := time.Date(year, month, ClampDay(year, month, day), at.Hour, at.Minute, at.Second, 0, after.Location())
		if candidate.After(after) {
			return candidate, nil
		}
		year, month = nextMonth(year, month)
	}
	return time.Time{}, fmt.Errorf("no monthly event found after %s", after)
}

func nextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}

// CalendarEvent is a period during which scheduled events do not run, such as a bank holiday.
type CalendarEvent struct {
	ID         string    `json:"id"`
	CalendarID string    `json:"calendar_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

func (e CalendarEvent) covers(t time.Time) bool {
	return !t.Before(e.Start) && t.Before(e.End)
}

// ShiftForHolidays moves t forward a day at a time until no calendar event covers it.
func ShiftForHolidays(t time.Time, events []CalendarEvent) time.Time {
	shifted := t
	for i := 0; i < maxHolidayShift; i++ {
		covered := false
		for _, event := range events {
			if event.covers(shifted) {
				covered = true
				break
			}
		}
		if !covered {
			return shifted
		}
		shifted = shifted.AddDate(0, 0, 1)
	}
	return shifted
}

// DailyWindowStart returns the start of the daily limit window containing effective.
// Windows roll over at periodEndHour.
func DailyWindowStart(effective time.Time, periodEndHour int) time.Time {
	start := time.Date(effective.Year(), effective.Month(), effective.Day(), periodEndHour, 0, 0, 0, effective.Location())
	if start.After(effective) {
		start = start.AddDate(0, 0, -1)
	}
	return start
}

// MonthlyWindowStart returns the start of the monthly limit window containing effective.
// Windows are anchored on the account creation day and time of day.
func MonthlyWindowStart(effective, creation time.Time) time.Time {
	creation = creation.In(effective.Location())
	anchor := func(year int, month time.Month) time.Time {
		return time.Date(year, month, ClampDay(year, month, creation.Day()),
			creation.Hour(), creation.Minute(), creation.Second(), creation.Nanosecond(), effective.Location())
	}

	start := anchor(effective.Year(), effective.Month())
	if start.After(effective) {
		year, month := effective.Year(), effective.Month()-1
		if month < time.January {
			year, month = year-1, time.December
		}
		start = anchor(year, month)
	}
	return start
}

// DaysBetween counts calendar days from the date of from to the date of to.
func DaysBetween(from, to time.Time) int {
	to = to.In(from.Location())
	fromDate := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDate := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int((toDate.Unix() - fromDate.Unix()) / secondsPerDay)
}

// CatchUpDays is the number of days owed on the first accrual after a late start:
// every elapsed day since creation plus the current one.
func CatchUpDays(creation, effective time.Time) int {
	elapsed := DaysBetween(creation, effective)
	if elapsed < 0 {
		return 0
	}
	return elapsed + 1
}
