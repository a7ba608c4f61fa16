package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// trackingParamPrefixes and trackingParamNames list query parameters that
// vary per-share/per-click but don't change the identity of the linked
// content, so they're stripped before hashing.
var trackingParamPrefixes = []string{"utm_"}
var trackingParamNames = map[string]bool{
	"fbclid": true, "gclid": true, "mc_cid": true, "mc_eid": true,
	"ref": true, "ref_src": true, "igshid": true,
}

// ContentHash computes the dedup key for an item: SHA-256 over the
// canonical (normalized_title, canonical_link, normalized_content) tuple.
// Title and content are whitespace-normalized and lower-cased so cosmetic
// re-fetches (trailing whitespace, case differences introduced by a
// template change) hash identically. The link is canonicalized (lowercased
// scheme+host, tracking params stripped) so link-sharing tracking noise
// doesn't create duplicate items for the same article.
func ContentHash(title, link, content string) string {
	h := sha256.New()
	h.Write([]byte(normalize(title)))
	h.Write([]byte{0})
	h.Write([]byte(canonicalLink(link)))
	h.Write([]byte{0})
	h.Write([]byte(normalize(content)))
	return hex.EncodeToString(h.Sum(nil))
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// canonicalLink lowercases scheme and host and strips tracking query
// parameters. If link fails to parse as a URL, it is returned verbatim so
// a malformed link still participates in dedup rather than being dropped.
func canonicalLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			lower := strings.ToLower(key)
			if trackingParamNames[lower] {
				q.Del(key)
				continue
			}
			for _, prefix := range trackingParamPrefixes {
				if strings.HasPrefix(lower, prefix) {
					q.Del(key)
					break
				}
			}
		}
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		encoded := url.Values{}
		for _, k := range keys {
			encoded[k] = q[k]
		}
		u.RawQuery = encoded.Encode()
	}

	return u.String()
}
