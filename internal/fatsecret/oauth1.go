package fatsecret

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// percentEncode applies RFC 3986 encoding as OAuth 1.0 requires: spaces as
// %20 and only unreserved characters left alone.
func percentEncode(s string) string {
	e := url.QueryEscape(s)
	e = strings.ReplaceAll(e, "+", "%20")
	e = strings.ReplaceAll(e, "*", "%2A")
	return strings.ReplaceAll(e, "%7E", "~")
}

// normalizedParams is the sorted key=value string that goes into the
// signature base string.
func normalizedParams(params url.Values) string {
	type kv struct{ k, v string }
	pairs := make([]kv, 0, len(params))
	for k, vs := range params {
		for _, v := range vs {
			pairs = append(pairs, kv{percentEncode(k), percentEncode(v)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.k + "=" + p.v
	}
	return strings.Join(parts, "&")
}

// Sign returns the HMAC-SHA1 signature of a request. params holds every
// oauth_* and request parameter except oauth_signature.
func Sign(method, rawURL string, params url.Values, consumerSecret, tokenSecret string) string {
	base := strings.ToUpper(method) + "&" + percentEncode(rawURL) + "&" + percentEncode(normalizedParams(params))
	key := percentEncode(consumerSecret) + "&" + percentEncode(tokenSecret)
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// authHeader renders the oauth_* parameters as an Authorization header.
func authHeader(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if strings.HasPrefix(k, "oauth_") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = percentEncode(k) + `="` + percentEncode(params.Get(k)) + `"`
	}
	return "OAuth " + strings.Join(parts, ", ")
}

func newNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// oauthParams returns the protocol parameters for one request with a fresh
// nonce and timestamp. token may be empty for the request-token step.
func (c *Client) oauthParams(token string) url.Values {
	p := url.Values{
		"oauth_consumer_key":     {c.conf.ClientID},
		"oauth_signature_method": {"HMAC-SHA1"},
		"oauth_timestamp":        {strconv.FormatInt(c.clock.Now().Unix(), 10)},
		"oauth_nonce":            {c.nonce()},
		"oauth_version":          {"1.0"},
	}
	if token != "" {
		p.Set("oauth_token", token)
	}
	return p
}

// signed merges extra into the protocol parameters and adds oauth_signature.
func (c *Client) signed(method, rawURL, token, tokenSecret string, extra url.Values) url.Values {
	params := c.oauthParams(token)
	for k, vs := range extra {
		params[k] = vs
	}
	params.Set("oauth_signature", Sign(method, rawURL, params, c.conf.SharedSecret, tokenSecret))
	return params
}
