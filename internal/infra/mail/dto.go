package mail

type LeadEmailData struct {
	Heading      string
	TextHeading  string
	Category     string
	Tag          string
	Name         string
	Email        string
	Phone        string
	Message      string
	MessageLines []string
	Source       string
	IP           string
	Event        string
	Date         string
}

// LeadEmail is a fully rendered notification.
type LeadEmail struct {
	Subject string
	Text    string
	HTML    string
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Secure   bool
	From     string
	To       string
	Location string
}
