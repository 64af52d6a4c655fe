package attachment

import (
	"net/url"
	"strings"
)

const (
	previewHost      = "cloudinary"
	uploadSegment    = "/upload/"
	previewTransform = "w_600,q_auto,f_jpg,pg_1"
	previewImageExt  = ".jpg"
)

// Preview derives a lightweight image locator for Cloudinary-hosted files:
// the fixed transformation (600px wide, auto quality, JPEG, first page) is
// inserted right after "/upload/" and a trailing ".pdf" becomes ".jpg".
//
// Locators from other hosts, locators without an upload segment and
// unparsable locators are returned unchanged. A locator that already
// carries the transformation is not transformed twice.
func Preview(locator string) string {
	if locator == "" {
		return ""
	}
	u, err := url.Parse(locator)
	if err != nil || u.Host == "" {
		return locator
	}
	if !strings.Contains(strings.ToLower(u.Host), previewHost) {
		return locator
	}

	idx := strings.Index(locator, uploadSegment)
	if idx < 0 {
		return locator
	}
	head := locator[:idx+len(uploadSegment)]
	tail := locator[idx+len(uploadSegment):]

	out := locator
	if !strings.HasPrefix(tail, previewTransform+"/") {
		out = head + previewTransform + "/" + tail
	}
	if strings.HasSuffix(strings.ToLower(out), DocumentExt) {
		out = out[:len(out)-len(DocumentExt)] + previewImageExt
	}
	return out
}
