package bypass

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/FranksOps/rankr/internal/serp"
)

// Detector examines a fetch result and reports whether the search host served
// an interstitial (block, challenge or consent page) instead of results.
type Detector func(res *serp.FetchResult) (detected bool, source string)

// DefaultDetectors returns the interstitial detectors for Google.
func DefaultDetectors() []Detector {
	return []Detector{
		detectSorryPage,
		detectRecaptcha,
		detectConsentWall,
	}
}

// Analyze runs the result through the detectors and records the first hit on
// the result. Detection is informational; callers do not retry on it.
func Analyze(res *serp.FetchResult, detectors []Detector) bool {
	if res == nil {
		return false
	}
	for _, d := range detectors {
		if detected, source := d(res); detected {
			res.Challenged = true
			res.ChallengeSrc = source
			return true
		}
	}
	res.Challenged = false
	res.ChallengeSrc = ""
	return false
}

func getHeader(headers http.Header, key string) string {
	if headers == nil {
		return ""
	}
	return headers.Get(key)
}

// detectSorryPage matches the "unusual traffic" page served from /sorry/.
func detectSorryPage(res *serp.FetchResult) (bool, string) {
	if strings.Contains(getHeader(res.Headers, "Location"), "/sorry/") ||
		strings.Contains(res.FinalURL, "/sorry/") {
		return true, "Google Sorry"
	}
	if bytes.Contains(res.Body, []byte("Our systems have detected unusual traffic")) ||
		bytes.Contains(res.Body, []byte("/sorry/index")) {
		return true, "Google Sorry"
	}
	return false, ""
}

// detectRecaptcha matches an embedded reCAPTCHA challenge.
func detectRecaptcha(res *serp.FetchResult) (bool, string) {
	if bytes.Contains(res.Body, []byte("g-recaptcha")) ||
		bytes.Contains(res.Body, []byte("www.google.com/recaptcha/api.js")) {
		return true, "reCAPTCHA"
	}
	return false, ""
}

// detectConsentWall matches the EU cookie consent interstitial.
func detectConsentWall(res *serp.FetchResult) (bool, string) {
	if strings.Contains(getHeader(res.Headers, "Location"), "consent.google.") ||
		strings.Contains(res.FinalURL, "consent.google.") {
		return true, "Consent"
	}
	if bytes.Contains(res.Body, []byte(`action="https://consent.google.`)) {
		return true, "Consent"
	}
	return false, ""
}
