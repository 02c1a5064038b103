package openlibrary

// bookPayload is the per-bibkey shape of the books API jscmd=data response
type bookPayload struct {
	Title       string    `json:"title"`
	Authors     []nameRef `json:"authors"`
	PublishDate string    `json:"publish_date"`
	Subjects    []nameRef `json:"subjects"`
	Cover       coverSet  `json:"cover"`
}

type nameRef struct {
	Name string `json:"name"`
}

type coverSet struct {
	Small  string `json:"small"`
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

// Book is the resolved metadata for one ISBN
type Book struct {
	ISBN      string
	Title     string
	Author    string
	Category  string
	CoverURL  string
	Published string
}
