// Package feedurl maps (instrument, UTC hour) pairs to datafeed URLs and local
// file names and back.
//
// The datafeed uses 0-indexed months in its paths; local file names use
// 1-indexed months.
package feedurl

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const DefaultRoot = "https://datafeed.dukascopy.com/datafeed"

// Side selects the price side of a candle file.
type Side string

const (
	SideBid Side = "BID"
	SideAsk Side = "ASK"
)

var urlPattern = regexp.MustCompile(`/([^/]+)/(\d{4})(?:/(\d{2}))?(?:/(\d{2}))?(?:/(\d{2})h)?`)

func pad(n int) string {
	if n < 10 && n >= 0 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func datePath(root, instrument string, t time.Time) string {
	t = t.UTC()
	return strings.Join([]string{
		strings.TrimSuffix(root, "/"),
		strings.ToUpper(instrument),
		pad(t.Year()),
		pad(int(t.Month()) - 1),
		pad(t.Day()),
	}, "/")
}

// BuildURL returns the URL of the hourly tick container covering t.
func BuildURL(root, instrument string, t time.Time) string {
	return fmt.Sprintf("%s/%sh_ticks.bi5", datePath(root, instrument, t), pad(t.UTC().Hour()))
}

// CandleURL returns the URL of the minute candle container for the day of t.
func CandleURL(root, instrument string, t time.Time, side Side) string {
	return fmt.Sprintf("%s/%s_candles_min_1.bi5", datePath(root, instrument, t), side)
}

// ParseURL is the inverse of BuildURL. A missing day defaults to 1, any other
// missing field to 0. The instrument is returned as it appears in the URL.
func ParseURL(url string) (string, time.Time, error) {
	m := urlPattern.FindStringSubmatch(url)
	if m == nil {
		return "", time.Time{}, fmt.Errorf("unrecognised datafeed url '%s'", url)
	}

	field := func(s string, def int) int {
		n, err := strconv.Atoi(s)
		if err != nil {
			return def
		}
		return n
	}

	year := field(m[2], 0)
	month := field(m[3], 0)
	day := field(m[4], 1)
	hour := field(m[5], 0)

	return m[1], time.Date(year, time.Month(month+1), day, hour, 0, 0, 0, time.UTC), nil
}

// LocalFileName derives SYMBOL_YYYY_MM_DD_HHh_ticks.csv from a tick URL, with a
// 1-indexed month.
func LocalFileName(url string) (string, error) {
	instrument, t, err := ParseURL(url)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s_%s_%s_%s_%sh_ticks.csv",
		strings.ToUpper(instrument), pad(t.Year()), pad(int(t.Month())), pad(t.Day()), pad(t.Hour())), nil
}

// DayFileName returns dir/SYMBOL/YYYY-MM-DD.ext.
func DayFileName(dir, instrument string, day time.Time, ext string) string {
	return filepath.Join(dir, strings.ToUpper(instrument), day.UTC().Format("2006-01-02")+"."+ext)
}
