package domain

import (
	"errors"
	"net/url"
	"strings"
)

// hostKeywords name LMS platform families plus a few institution and
// courseware vendor domains seen in the wild.
var hostKeywords = []string{
	"canvas",
	"instructure",
	"d2l",
	"brightspace",
	"blackboard",
	"moodle",
	"schoology",
	"lite.msu.edu",
	"webwork",
	"loncapa",
	"lon-capa",
	"connect.mheducation",
	"mheducation.com",
	"mcgrawhill",
	"mhconnect",
}

// pathKeywords name the areas of a site where due dates live.
var pathKeywords = []string{
	"assignments",
	"assignment",
	"homework",
	"set",
	"problem",
	"quizzes",
	"coursework",
	"grades",
	"calendar",
	"webwork2",
	"lon-capa",
	"connect",
	"student/class",
	"student/todo",
	"student/calendar",
}

var errNotAbsolute = errors.New("url is not absolute")

// vendorHostKeywords identify the card-based courseware vendor.
var vendorHostKeywords = []string{
	"mheducation.com",
	"connect.mheducation",
	"newconnect",
}

// IsLikelyRelevantLocation reports whether a page is worth scanning.
//
// Matching is substring based and case-insensitive on purpose: a false
// positive costs one empty extraction, a false negative loses deadlines.
// Malformed URLs are never relevant.
func IsLikelyRelevantLocation(rawURL string) bool {
	u, err := parseAbsolute(rawURL)
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.EscapedPath())

	return containsAny(host, hostKeywords) || containsAny(path, pathKeywords)
}

// IsVendorCardHost reports whether the page belongs to the card-based
// courseware vendor, which gets its own extraction strategy.
func IsVendorCardHost(rawURL string) bool {
	u, err := parseAbsolute(rawURL)
	if err != nil {
		return false
	}
	return containsAny(strings.ToLower(u.Hostname()), vendorHostKeywords)
}

func parseAbsolute(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		return nil, &url.Error{Op: "parse", URL: rawURL, Err: errNotAbsolute}
	}
	return u, nil
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
