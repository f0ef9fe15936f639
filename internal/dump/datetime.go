package dump

import (
	"fmt"
	"time"
)

const (
	includeTimeLayout = "2006-01-02T15:04:05"
	decisionLayout    = "2006-01-02"
)

// NormalizeDateTime - YYYY-MM-DDTHH:MM:SS to YYYY-MM-DD HH:MM:SS.
func NormalizeDateTime(s string) (string, error) {
	if len(s) != len(includeTimeLayout) || s[10] != 'T' {
		return "", fmt.Errorf("%w: bad datetime: %q", ErrParse, s)
	}

	for i := 0; i < len(s); i++ {
		switch i {
		case 4, 7:
			if s[i] != '-' {
				return "", fmt.Errorf("%w: bad datetime: %q", ErrParse, s)
			}
		case 10:
		case 13, 16:
			if s[i] != ':' {
				return "", fmt.Errorf("%w: bad datetime: %q", ErrParse, s)
			}
		default:
			if s[i] < '0' || s[i] > '9' {
				return "", fmt.Errorf("%w: bad datetime: %q", ErrParse, s)
			}
		}
	}

	return s[:10] + " " + s[11:], nil
}

// parseRegisterTime - register times are RFC3339, empty means absent.
func parseRegisterTime(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("%w: register time: %w", ErrParse, err)
	}

	return t.Unix(), nil
}

func checkDecisionDate(s string) error {
	if s == "" {
		return nil
	}

	if _, err := time.Parse(decisionLayout, s); err != nil {
		return fmt.Errorf("%w: decision date: %q", ErrParse, s)
	}

	return nil
}
