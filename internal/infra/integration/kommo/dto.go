package kommo

type Config struct {
	BaseURL  string
	APIToken string
	// StatusID places new leads in a pipeline stage; zero uses the
	// account's default stage.
	StatusID int
}

type contactsResponse struct {
	Embedded struct {
		Contacts []struct {
			ID int `json:"id"`
		} `json:"contacts"`
	} `json:"_embedded"`
}

type leadsResponse struct {
	Embedded struct {
		Leads []struct {
			ID int `json:"id"`
		} `json:"leads"`
	} `json:"_embedded"`
}
