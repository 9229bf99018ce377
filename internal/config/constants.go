package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./bookshelf.db"

	// DefaultCatalogBaseURL is the Open Library API root used for search and editions
	DefaultCatalogBaseURL = "https://openlibrary.org"

	// DefaultCoverURLTemplate builds a medium-size cover URL from a numeric cover id
	DefaultCoverURLTemplate = "https://covers.openlibrary.org/b/id/%d-M.jpg"

	DefaultUserAgent = "Bookshelf/1.0 (https://github.com/mrlokans/bookshelf)"
)
