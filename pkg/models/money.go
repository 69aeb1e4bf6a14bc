package models

import (
	"strconv"
	"strings"
)

// Upper bounds of the NUMERIC money columns.
const (
	MaxAmount     = 9999999999.99 // NUMERIC(12,2)
	MaxHourlyRate = 99999999.99   // NUMERIC(10,2)
)

// HasCentsPrecision reports whether v has at most two decimal places in its
// shortest decimal form, which is the form the database driver sends.
func HasCentsPrecision(v float64) bool {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	i := strings.IndexByte(s, '.')
	return i < 0 || len(s)-i-1 <= 2
}
