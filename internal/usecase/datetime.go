package usecase

import (
	"errors"
	"strings"
	"time"
)

// RFC3339 か日付のみ（2006-01-02、UTCの0時）を受け付ける
func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
