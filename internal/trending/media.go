package trending

import (
	"net/url"
	"regexp"
	"strings"
)

// variantSegments are the thumbnail path prefixes the image CDN serves.
// Any of them can be swapped for "large" to get the full-size original.
var variantSegments = map[string]struct{}{
	"thumb150": {},
	"thumb180": {},
	"orj360":   {},
	"orj480":   {},
	"bmiddle":  {},
	"small":    {},
	"square":   {},
	"mw690":    {},
	"mw1024":   {},
	"mw2000":   {},
}

// reBlockedImageHost matches the wx* image hosts that refuse hotlinked
// requests; the tvax* mirrors serve the same objects without the referrer
// check.
var reBlockedImageHost = regexp.MustCompile(`^wx(\d*)\.sinaimg\.(?:cn|com)$`)

// CanonicalImageURL resolves an image reference against the page it was
// found on and rewrites it to its stable full-size form: thumbnail path
// segments become "large" and blocked wx hosts become their tvax mirror.
// The second return is false for references that are not usable images.
func CanonicalImageURL(raw string, base *url.URL) (string, bool) {
	resolved := resolveRef(raw, base)
	if resolved == "" {
		return "", false
	}
	u, err := url.Parse(resolved)
	if err != nil || u.Host == "" {
		return "", false
	}

	segments := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	if len(segments) > 0 {
		if _, ok := variantSegments[segments[0]]; ok {
			segments[0] = "large"
			u.Path = "/" + strings.Join(segments, "/")
		}
	}

	if m := reBlockedImageHost.FindStringSubmatch(u.Host); m != nil {
		u.Host = "tvax" + m[1] + ".sinaimg.cn"
	}

	return u.String(), true
}

// resolveRef turns protocol-relative and page-relative references into
// absolute URLs.
func resolveRef(raw string, base *url.URL) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	if base == nil {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// videoCaptionSuffix is the boilerplate appended to posts whose only text
// is the auto-generated video caption.
const videoCaptionSuffix = "的微博视频"

// StripVideoCaption removes the "{author}的微博视频" boilerplate from a
// post's text once a video link has been extracted. Text that is entirely
// boilerplate collapses to empty.
func StripVideoCaption(content, author string) string {
	if author != "" {
		content = strings.ReplaceAll(content, author+videoCaptionSuffix, "")
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), videoCaptionSuffix)
	return strings.TrimSpace(content)
}
