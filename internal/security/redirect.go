package security

import "net/url"

// IsSafeRedirect reports whether target is safe to redirect to after an
// auth transition. The target is resolved against hostURL, then accepted
// only when the resolved scheme is http or https and the resolved
// host:port equals the current request's. Relative paths resolve to the
// current host and pass; "javascript:" and cross-origin absolute URLs do
// not.
func IsSafeRedirect(target string, hostURL string) bool {
	if target == "" {
		return false
	}

	ref, err := url.Parse(hostURL)
	if err != nil {
		return false
	}

	resolved, err := ref.Parse(target)
	if err != nil {
		return false
	}

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return false
	}
	return resolved.Host == ref.Host
}
