package templates

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jjenkins/parliament/internal/model"
)

const dateLayout = "2006-01-02"

func sittingPath(date time.Time) string {
	return "/sittings/" + date.Format(dateLayout)
}

func billPath(id int64) string {
	return "/bills/" + strconv.FormatInt(id, 10)
}

func ministryPath(acronym string) string {
	return "/ministries/" + acronym
}

func longDate(t time.Time) string {
	return t.Format("2 January 2006")
}

func shortDate(t time.Time) string {
	return t.Format("2 Jan 2006")
}

func presentLine(rows []model.AttendanceRow) string {
	present := 0
	for _, a := range rows {
		if a.Present {
			present++
		}
	}
	return fmt.Sprintf("%d of %d members present", present, len(rows))
}
