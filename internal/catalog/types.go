package catalog

// Work is a single search hit: an abstract work independent of edition.
type Work struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name,omitempty"`
	FirstPublishYear int      `json:"first_publish_year,omitempty"`
	EditionCount     int      `json:"edition_count,omitempty"`
	CoverID          int      `json:"cover_i,omitempty"`
	ISBN             []string `json:"isbn,omitempty"`
}

// AuthorName is the display form of an edition author.
type AuthorName struct {
	Name string `json:"name"`
}

// Edition is one specific printing of a Work.
type Edition struct {
	Key           string       `json:"key"`
	Title         string       `json:"title"`
	Authors       []AuthorName `json:"authors,omitempty"`
	Publishers    []string     `json:"publishers,omitempty"`
	PublishDate   string       `json:"publish_date,omitempty"`
	ISBN13        []string     `json:"isbn_13,omitempty"`
	ISBN10        []string     `json:"isbn_10,omitempty"`
	Covers        []int        `json:"covers,omitempty"`
	NumberOfPages int          `json:"number_of_pages,omitempty"`
}

// Open Library API response types (internal)

type searchResponse struct {
	NumFound int         `json:"numFound"`
	Docs     []searchDoc `json:"docs"`
}

type searchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	EditionCount     int      `json:"edition_count"`
	CoverI           int      `json:"cover_i"`
	ISBN             []string `json:"isbn"`
}

type editionsResponse struct {
	Size    int          `json:"size"`
	Entries []editionDoc `json:"entries"`
}

// editionDoc keeps authors loose: the editions endpoint returns either
// {"key": "/authors/..."} references or inline {"name": "..."} objects.
type editionDoc struct {
	Key           string           `json:"key"`
	Title         string           `json:"title"`
	Authors       []map[string]any `json:"authors"`
	Publishers    []string         `json:"publishers"`
	PublishDate   string           `json:"publish_date"`
	ISBN13        []string         `json:"isbn_13"`
	ISBN10        []string         `json:"isbn_10"`
	Covers        []int            `json:"covers"`
	NumberOfPages int              `json:"number_of_pages"`
}

func (d searchDoc) toWork() Work {
	return Work{
		Key:              d.Key,
		Title:            d.Title,
		AuthorName:       d.AuthorName,
		FirstPublishYear: d.FirstPublishYear,
		EditionCount:     d.EditionCount,
		CoverID:          d.CoverI,
		ISBN:             d.ISBN,
	}
}

func (d editionDoc) toEdition() Edition {
	e := Edition{
		Key:           d.Key,
		Title:         d.Title,
		Publishers:    d.Publishers,
		PublishDate:   d.PublishDate,
		ISBN13:        d.ISBN13,
		ISBN10:        d.ISBN10,
		NumberOfPages: d.NumberOfPages,
	}

	// Open Library uses -1 as a placeholder for "no cover"
	for _, id := range d.Covers {
		if id > 0 {
			e.Covers = append(e.Covers, id)
		}
	}

	if d.Authors != nil {
		e.Authors = make([]AuthorName, 0, len(d.Authors))
		for _, a := range d.Authors {
			name, _ := a["name"].(string)
			if name == "" {
				name = UnknownAuthor
			}
			e.Authors = append(e.Authors, AuthorName{Name: name})
		}
	}

	return e
}
