package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Detection reports whether a response looks like a bot challenge rather
// than real content, and which protection produced it.
type Detection struct {
	Detected bool
	Source   string
}

// Detector examines a response to determine if a bot protection mechanism
// blocked or challenged the request.
type Detector func(status int, header http.Header, body []byte) Detection

// DefaultDetectors returns every detector, ordered from most to least
// specific. Clients with a known challenge surface should prefer the
// narrower sets below: the body markers are only meaningful on the pages
// that serve them, and running all of them everywhere misclassifies
// ordinary content (a search snippet mentioning "robot", say).
func DefaultDetectors() []Detector {
	return []Detector{
		DetectSearchChallenge,
		DetectAccessDenied,
		DetectCloudflare,
	}
}

// SearchDetectors recognizes only the search endpoint's challenges.
func SearchDetectors() []Detector {
	return []Detector{DetectSearchChallenge}
}

// WebsiteDetectors recognizes the challenges brand sites serve.
func WebsiteDetectors() []Detector {
	return []Detector{DetectAccessDenied, DetectCloudflare}
}

// Analyze runs the response through all provided detectors and returns the
// first detection that triggers.
func Analyze(status int, header http.Header, body []byte, detectors []Detector) Detection {
	for _, d := range detectors {
		if det := d(status, header, body); det.Detected {
			return det
		}
	}
	return Detection{}
}

// DetectSearchChallenge recognizes the search endpoint's soft rejections:
// an HTTP 202 holding page, or an HTML body asking the visitor to retry
// because unusual activity was detected.
func DetectSearchChallenge(status int, header http.Header, body []byte) Detection {
	if status == http.StatusAccepted {
		return Detection{Detected: true, Source: "search-challenge"}
	}
	if bytes.Contains(body, []byte("Please try again")) ||
		bytes.Contains(body, []byte("detected unusual activity")) {
		return Detection{Detected: true, Source: "search-challenge"}
	}
	return Detection{}
}

// DetectAccessDenied recognizes generic captcha and access-denied pages that
// brand websites serve to suspected automation.
func DetectAccessDenied(status int, header http.Header, body []byte) Detection {
	lower := bytes.ToLower(body)
	for _, marker := range [][]byte{
		[]byte("captcha"),
		[]byte("robot"),
		[]byte("automated access"),
		[]byte("access denied"),
	} {
		if bytes.Contains(lower, marker) {
			return Detection{Detected: true, Source: "access-denied"}
		}
	}
	return Detection{}
}

// DetectCloudflare looks for Cloudflare challenge/block signatures. Many
// brand homepages sit behind it.
func DetectCloudflare(status int, header http.Header, body []byte) Detection {
	if status != http.StatusForbidden && status != http.StatusServiceUnavailable {
		return Detection{}
	}

	server := strings.ToLower(header.Get("Server"))
	if strings.Contains(server, "cloudflare") {
		return Detection{Detected: true, Source: "cloudflare"}
	}

	if bytes.Contains(body, []byte("cf-browser-verification")) ||
		bytes.Contains(body, []byte("cf-turnstile")) ||
		bytes.Contains(body, []byte("Attention Required! | Cloudflare")) {
		return Detection{Detected: true, Source: "cloudflare"}
	}
	return Detection{}
}
