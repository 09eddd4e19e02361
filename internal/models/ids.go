package models

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// NewStationID generates the short code stations are known by externally,
// e.g. "ST1A2B3C": "ST" plus the tail of the current unix-millis in base36.
func NewStationID() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	if len(ts) > 6 {
		ts = ts[len(ts)-6:]
	}
	return "ST" + strings.ToUpper(ts)
}

// NewRecordID generates a record id. A random tail keeps ids unique when
// several records are created within the same millisecond.
func NewRecordID() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	var tail [2]byte
	_, _ = rand.Read(tail[:])
	return "RC" + strings.ToUpper(ts) + strings.ToUpper(hex.EncodeToString(tail[:]))
}

// NewUserID generates a numeric user id from the current unix-millis.
func NewUserID() int64 {
	return time.Now().UnixMilli()
}

// NowISO returns the current UTC time in the ISO-8601 form stored by both
// backends.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Today returns the current calendar day as "YYYY-MM-DD".
func Today() string {
	return time.Now().UTC().Format("2006-01-02")
}
