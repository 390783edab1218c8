package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidClockTime(t *testing.T) {
	valid := []string{"00:00", "09:00", "17:00", "23:59", "12:30"}
	for _, s := range valid {
		assert.True(t, ValidClockTime(s), "%q should be valid", s)
	}

	invalid := []string{"", "9:00", "09:0", "24:00", "12:60", "ab:cd", "12-30", "09:00:00", "-1:00"}
	for _, s := range invalid {
		assert.False(t, ValidClockTime(s), "%q should be invalid", s)
	}
}

func TestValidatorRequired(t *testing.T) {
	type form struct {
		Name  string `validate:"required"`
		Email string `validate:"required,email"`
	}

	v := NewValidator()

	assert.NoError(t, v.Validate(&form{Name: "Front Door", Email: "ops@example.com"}))

	err := v.Validate(&form{Email: "ops@example.com"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Name")
}

func TestValidatorEmail(t *testing.T) {
	type form struct {
		Email string `validate:"email"`
	}

	v := NewValidator()

	assert.NoError(t, v.Validate(&form{Email: "ops@example.com"}))
	assert.NoError(t, v.Validate(&form{})) // empty passes unless also required
	assert.Error(t, v.Validate(&form{Email: "not-an-email"}))
	assert.Error(t, v.Validate(&form{Email: "@example.com"}))
	assert.Error(t, v.Validate(&form{Email: "ops@"}))
}

func TestValidatorMinMax(t *testing.T) {
	type form struct {
		Name  string `validate:"min=3,max=10"`
		Count int    `validate:"min=1,max=100"`
	}

	v := NewValidator()

	assert.NoError(t, v.Validate(&form{Name: "lobby", Count: 5}))
	assert.Error(t, v.Validate(&form{Name: "ab", Count: 5}))
	assert.Error(t, v.Validate(&form{Name: "much too long name", Count: 5}))
	assert.Error(t, v.Validate(&form{Name: "lobby", Count: 0}))
	assert.Error(t, v.Validate(&form{Name: "lobby", Count: 101}))
}
