package model

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatReceiptNumber builds the display number, e.g. RCP-2026-000123.
// Sequence numbers restart each year per store.
func FormatReceiptNumber(year, sequence int) string {
	return fmt.Sprintf("RCP-%d-%06d", year, sequence)
}

// ParseReceiptNumber splits a display number back into year and sequence.
func ParseReceiptNumber(number string) (year, sequence int, err error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 || parts[0] != "RCP" {
		return 0, 0, fmt.Errorf("invalid receipt number %q", number)
	}

	year, err = strconv.Atoi(parts[1])
	if err != nil || year < 2000 {
		return 0, 0, fmt.Errorf("invalid receipt number year %q", number)
	}

	sequence, err = strconv.Atoi(parts[2])
	if err != nil || sequence < 1 {
		return 0, 0, fmt.Errorf("invalid receipt number sequence %q", number)
	}
	return year, sequence, nil
}
