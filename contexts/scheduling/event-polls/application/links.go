package application

import "strings"

// EventURL is the public page of a poll in the calendar frontend.
func EventURL(frontendBase string, pollID string) string {
	return strings.TrimRight(strings.TrimSpace(frontendBase), "/") + "/apps/calendar/events/" + strings.TrimSpace(pollID)
}
