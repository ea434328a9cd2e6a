package domain

// Page is a single fetched web page. Content is the extracted main text
// (markdown); HTML and Metadata carry whatever the fetcher returned.
type Page struct {
	URL      string
	Title    string
	Content  string
	HTML     string
	Metadata map[string]string
}

// Document is an ingested source unit keyed by URL. Re-ingesting the same
// URL replaces the record, it never appends a duplicate.
type Document struct {
	URL         string
	Title       string
	Content     string
	ChunksCount int
}
