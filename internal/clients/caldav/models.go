package caldav

// Calendar is a calendar collection discovered on the server.
type Calendar struct {
	ID          string
	DisplayName string
	URL         string
}
