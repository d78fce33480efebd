// Package sequence derives human readable identifiers such as BILL0042 from
// the largest suffix already stored in a series.
package sequence

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"medstore/m/domain"
	"medstore/m/internal/store"
)

// Next returns the identifier after the current maximum of series. It must be
// called inside the transaction that inserts the identifier; a concurrent
// writer that wins the race surfaces as store.ErrDuplicate on insert and the
// caller retries.
func Next(ctx context.Context, tx store.SeriesTx, series store.Series) (string, error) {
	last, err := tx.MaxSeriesNumber(ctx, series)
	if err != nil {
		return "", fmt.Errorf("read %s series: %w", series.Prefix, err)
	}
	if last < 0 {
		last = 0
	}
	return Format(series, last+1)
}

// Format renders n with the series prefix, zero padded to the series width.
// Numbers wider than the width are kept whole up to MaxWidth digits.
func Format(series store.Series, n int64) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("sequence: invalid number %d", n)
	}
	digits := strconv.FormatInt(n, 10)
	limit := series.MaxWidth
	if limit < series.Width {
		limit = series.Width
	}
	if len(digits) > limit {
		return "", domain.Errorf(domain.ErrSequenceExhausted, "%s series exhausted at %d digits", series.Prefix, limit)
	}
	if pad := series.Width - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	return series.Prefix + digits, nil
}

// Parse extracts the numeric suffix of id. ok is false when id does not belong
// to series.
func Parse(series store.Series, id string) (n int64, ok bool) {
	suffix, found := strings.CutPrefix(id, series.Prefix)
	if !found || suffix == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
