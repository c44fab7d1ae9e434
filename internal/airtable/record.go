package airtable

// Record is one row returned by the record-listing endpoint.
type Record struct {
	ID          string `json:"id"`
	CreatedTime string `json:"createdTime,omitempty"`
	Fields      Fields `json:"fields"`
}

// Page is a single response of the record-listing endpoint. Offset is the
// continuation token; it is empty on the last page.
type Page struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

// ListRequest selects the records to fetch.
type ListRequest struct {
	Table      string
	View       string
	PageSize   int
	MaxRecords int
	Offset     string
}
