// Package export renders a class check-in list as a CSV download.
package export

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/semanticallynull/spinroom/attendance"
)

const header = "Nombre,Bike,Créditos Restantes,Estado"

var ErrEmpty = errors.New("nothing to export")

// ContentType is sent with the download.
const ContentType = "text/csv; charset=utf-8"

// Filename is the suggested download name for a class.
func Filename(classKey string) string {
	return "checkin-" + classKey + ".csv"
}

// CSV writes one line per rider after the header. Text columns are always
// quoted; lines are separated by "\n" with none after the last.
func CSV(w io.Writer, recs []attendance.Record) error {
	if len(recs) == 0 {
		return ErrEmpty
	}
	var b strings.Builder
	b.WriteString(header)
	for _, r := range recs {
		b.WriteByte('\n')
		b.WriteString(quote(r.UserName))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(r.BikeNumber))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(r.CreditsRemaining))
		b.WriteByte(',')
		b.WriteString(quote(r.Status.Label()))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
