package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"venuebooking/internal/delivery/http/helpers"

	"github.com/google/uuid"
)

// pathID reads the {id} path value and rejects anything that is not a UUID. The
// returned id is in canonical lowercase form.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "id must be a UUID")
		return "", false
	}
	return id.String(), true
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDateOrTime accepts RFC 3339, a zone-less datetime, or a bare date. Zone-less
// values are read in loc; a bare date is midnight in loc.
func parseDateOrTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a date (YYYY-MM-DD) or RFC 3339 time", s)
}
