package pages

// WatchList is the top-level structure of the pages yaml file.
type WatchList struct {
	Pages []Page `yaml:"pages" validate:"dive"`
}

// Page is one watched page.
type Page struct {
	Name string `yaml:"name" validate:"required"`
	// URL locates the page for classification and link resolution. It is
	// fetched unless File is set.
	URL string `yaml:"url" validate:"required,url"`
	// File is an optional saved snapshot read instead of fetching URL.
	File string `yaml:"file,omitempty"`
}
