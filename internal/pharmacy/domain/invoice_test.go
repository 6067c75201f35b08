package domain

import (
	"crypto/rand"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestComputeTax(t *testing.T) {
	t.Parallel()

	// 19% of $25.00 is $4.75.
	require.Equal(t, int64(475), ComputeTax(2500))

	// Fractional cents truncate.
	require.Equal(t, int64(18), ComputeTax(99))
	require.Equal(t, int64(0), ComputeTax(0))
	require.Equal(t, int64(0), ComputeTax(5))
}

func TestNewInvoiceNumber(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	n, err := NewInvoiceNumber(now, rand.Reader)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^FD-20250314092653-\d{4}$`), n)

	t.Run("distinct seconds yield distinct numbers", func(t *testing.T) {
		seen := make(map[string]struct{})
		for i := 0; i < 50; i++ {
			n, err := NewInvoiceNumber(now.Add(time.Duration(i)*time.Second), rand.Reader)
			require.NoError(t, err)
			_, dup := seen[n]
			require.False(t, dup, "duplicate invoice number %s", n)
			seen[n] = struct{}{}
		}
	})

	t.Run("clock rendered in UTC", func(t *testing.T) {
		loc := time.FixedZone("UTC+5", 5*3600)
		n, err := NewInvoiceNumber(now.In(loc), rand.Reader)
		require.NoError(t, err)
		require.Regexp(t, regexp.MustCompile(`^FD-20250314092653-\d{4}$`), n)
	})
}
