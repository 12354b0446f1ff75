package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateCronSchedule(t *testing.T) {
	valid := []string{
		"0 6 * * *",
		"30 5 * * *",
		"0 */6 * * *",
		"30 9 * * 1-5",
		"0 0 1 1 *",
	}
	for _, schedule := range valid {
		assert.NoError(t, ValidateCronSchedule(schedule), schedule)
	}

	invalid := []string{
		"",
		"every morning",
		"* * *",
		"60 0 * * *",
		"0 25 * * *",
		"@daily @daily",
	}
	for _, schedule := range invalid {
		assert.Error(t, ValidateCronSchedule(schedule), schedule)
	}
}

func TestValidateTimezone(t *testing.T) {
	for _, tz := range []string{"UTC", "America/New_York", "Asia/Tokyo"} {
		assert.NoError(t, ValidateTimezone(tz), tz)
	}
	for _, tz := range []string{"", "Mars/Olympus", "+09:00"} {
		assert.Error(t, ValidateTimezone(tz), tz)
	}
}

func TestValidateDuration(t *testing.T) {
	assert.NoError(t, ValidateDuration(30*time.Minute, time.Minute, time.Hour))
	assert.NoError(t, ValidateDuration(time.Minute, time.Minute, time.Hour), "min is inclusive")
	assert.NoError(t, ValidateDuration(time.Hour, time.Minute, time.Hour), "max is inclusive")

	assert.Error(t, ValidateDuration(time.Second, time.Minute, time.Hour))
	assert.Error(t, ValidateDuration(2*time.Hour, time.Minute, time.Hour))
	assert.Error(t, ValidateDuration(time.Minute, time.Hour, time.Minute), "inverted range")
}

func TestValidateIntRange(t *testing.T) {
	assert.NoError(t, ValidateIntRange(9091, 1024, 65535))
	assert.NoError(t, ValidateIntRange(1024, 1024, 65535))
	assert.NoError(t, ValidateIntRange(65535, 1024, 65535))

	assert.Error(t, ValidateIntRange(80, 1024, 65535))
	assert.Error(t, ValidateIntRange(70000, 1024, 65535))
	assert.Error(t, ValidateIntRange(5, 10, 1), "inverted range")
}

func TestValidatePositiveDuration(t *testing.T) {
	assert.NoError(t, ValidatePositiveDuration(time.Nanosecond))
	assert.NoError(t, ValidatePositiveDuration(30*time.Minute))

	assert.Error(t, ValidatePositiveDuration(0))
	assert.Error(t, ValidatePositiveDuration(-time.Second))
}
