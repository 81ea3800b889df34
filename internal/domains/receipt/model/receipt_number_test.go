package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatReceiptNumber(t *testing.T) {
	assert.Equal(t, "RCP-2026-000001", FormatReceiptNumber(2026, 1))
	assert.Equal(t, "RCP-2026-000123", FormatReceiptNumber(2026, 123))
	assert.Equal(t, "RCP-2027-999999", FormatReceiptNumber(2027, 999999))
}

func TestParseReceiptNumber(t *testing.T) {
	year, seq, err := ParseReceiptNumber("RCP-2026-000042")
	require.NoError(t, err)
	assert.Equal(t, 2026, year)
	assert.Equal(t, 42, seq)
}

func TestParseReceiptNumberRoundTrip(t *testing.T) {
	number := FormatReceiptNumber(2026, 7)
	year, seq, err := ParseReceiptNumber(number)
	require.NoError(t, err)
	assert.Equal(t, 2026, year)
	assert.Equal(t, 7, seq)
}

func TestParseReceiptNumberInvalid(t *testing.T) {
	invalid := []string{
		"",
		"RCP-2026",
		"INV-2026-000001",
		"RCP-abcd-000001",
		"RCP-2026-000000",
		"RCP-1999-000001",
	}
	for _, number := range invalid {
		_, _, err := ParseReceiptNumber(number)
		assert.Error(t, err, number)
	}
}

func TestAllStagesDone(t *testing.T) {
	receipt := &Receipt{}
	assert.False(t, receipt.AllStagesDone())

	receipt.PDFGenerated = true
	receipt.CloudinaryUploaded = true
	assert.False(t, receipt.AllStagesDone())

	receipt.EmailSent = true
	assert.True(t, receipt.AllStagesDone())
}
