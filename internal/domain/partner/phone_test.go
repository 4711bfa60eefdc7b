package partner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhoneCandidates_TenDigits(t *testing.T) {
	got := PhoneCandidates("3001234567", "57")

	for _, want := range []string{
		"3001234567",
		"300-123-4567",
		"300 123 4567",
		"(300) 123 4567",
		"+57 3001234567",
		"+573001234567",
		"+57 300 123 4567",
	} {
		assert.Contains(t, got, want)
	}
	assert.Equal(t, "3001234567", got[0], "raw input comes first")
	assert.Len(t, got, 7, "raw equals digits so it is not repeated")
}

func TestPhoneCandidates_FormattedInputKeepsRaw(t *testing.T) {
	got := PhoneCandidates("(300) 123-4567", "")

	assert.Equal(t, "(300) 123-4567", got[0])
	assert.Contains(t, got, "3001234567")
	assert.Contains(t, got, "+57 300 123 4567")
	assert.Len(t, got, 8)
}

func TestPhoneCandidates_OnlyRawForOtherLengths(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"short local number", "1234567"},
		{"with country code", "+57 300 123 4567"},
		{"letters only", "call me"},
		{"eleven digits", "30012345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, []string{tt.raw}, PhoneCandidates(tt.raw, "57"))
		})
	}
}

func TestPhoneCandidates_Empty(t *testing.T) {
	assert.Nil(t, PhoneCandidates("   ", "57"))
}

func TestPhoneCandidates_CustomCountryCode(t *testing.T) {
	got := PhoneCandidates("3001234567", "+1")
	assert.Contains(t, got, "+1 3001234567")
	assert.NotContains(t, got, "+57 3001234567")
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "573001234567", DigitsOnly("+57 (300) 123-4567"))
	assert.Equal(t, "", DigitsOnly("n/a"))
}
