package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

// parseAfter reads the optional {time} path value. An unparseable time is
// reported as an error; callers answer 404 like an unmatched route.
func parseAfter(r *http.Request) (*time.Time, error) {
	raw := r.PathValue("time")
	if raw == "" {
		return nil, nil
	}
	t, err := parseTimeParam(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseTimeParam(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, errors.New("invalid time (expected RFC3339)")
	}
	return t, nil
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 32)
	if err != nil {
		return 0, errors.New("invalid metric id")
	}
	return id, nil
}
