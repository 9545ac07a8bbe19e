package redirect

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Lucasvitorkkx/UTM/internal"
)

// BuildDestination merges the link's UTM parameters into raw. Set parameters
// replace same-named ones already in the query; every other query segment is
// kept byte for byte, in order. With no UTM parameters the result is raw
// itself. raw must be an absolute URL.
func BuildDestination(raw string, utm internal.UTM) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", internal.ErrMalformedDestination, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not an absolute url", internal.ErrMalformedDestination, raw)
	}

	params := utm.Params()
	if len(params) == 0 {
		return raw, nil
	}

	u.RawQuery = mergeQuery(u.RawQuery, params)
	u.ForceQuery = false
	return u.String(), nil
}

// mergeQuery sets each param the way URLSearchParams.set does: the first
// occurrence of the key is replaced in place, later duplicates are removed,
// and missing keys are appended.
func mergeQuery(rawQuery string, params []internal.QueryParam) string {
	values := make(map[string]string, len(params))
	for _, p := range params {
		values[p.Key] = p.Value
	}

	written := make(map[string]bool, len(params))
	var segments []string
	if rawQuery != "" {
		for _, segment := range strings.Split(rawQuery, "&") {
			key := segmentKey(segment)
			value, isUTM := values[key]
			if !isUTM {
				segments = append(segments, segment)
				continue
			}
			if written[key] {
				continue
			}
			segments = append(segments, encodePair(key, value))
			written[key] = true
		}
	}

	for _, p := range params {
		if !written[p.Key] {
			segments = append(segments, encodePair(p.Key, p.Value))
		}
	}
	return strings.Join(segments, "&")
}

func segmentKey(segment string) string {
	key, _, _ := strings.Cut(segment, "=")
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return key
	}
	return decoded
}

func encodePair(key, value string) string {
	return url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
