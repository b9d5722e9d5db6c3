// Package signer implements AWS Signature Version 4 request signing for
// talking to an S3-compatible object store over plain HTTP. It covers
// both header-based signing (Authorization) and query presigning for
// URLs handed out to upload clients.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	Algorithm = "AWS4-HMAC-SHA256"

	// UnsignedPayload marks requests whose body is not covered by the
	// signature, as presigned uploads are.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// EmptyPayloadSHA256 is the hex SHA-256 of a zero-length body.
	EmptyPayloadSHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	serviceName      = "s3"
	requestTypeTag   = "aws4_request"
	amzDateFormat    = "20060102T150405Z"
	signerDateFormat = "20060102"
)

// Headers never included in the signature, matching what S3 servers
// exclude when re-deriving it.
var ignoredHeaders = map[string]struct{}{
	"accept-encoding": {},
	"authorization":   {},
	"content-type":    {},
	"content-length":  {},
	"user-agent":      {},
}

// Signer holds a static credential pair scoped to one region.
type Signer struct {
	AccessKey string
	SecretKey string
	Region    string
}

// New returns a Signer for the given credentials and region.
func New(accessKey, secretKey, region string) *Signer {
	return &Signer{AccessKey: accessKey, SecretKey: secretKey, Region: region}
}

// SignRequest stamps r with X-Amz-Date, X-Amz-Content-Sha256 and a
// v4 Authorization header computed over the request at time t.
// payloadHash is the hex SHA-256 of the body (EmptyPayloadSHA256 for
// empty bodies, UnsignedPayload to leave the body uncovered).
func (s *Signer) SignRequest(r *http.Request, payloadHash string, t time.Time) {
	t = t.UTC()
	if r.Header.Get("Host") == "" {
		host := r.Host
		if host == "" {
			host = r.URL.Host
		}
		r.Header.Set("Host", host)
	}
	r.Header.Set("X-Amz-Date", t.Format(amzDateFormat))
	r.Header.Set("X-Amz-Content-Sha256", payloadHash)

	auth := s.SignHeader(r.Method, r.URL.Path, r.URL.RawQuery, r.Header, payloadHash, t)
	r.Header.Set("Authorization", auth)
}

// SignHeader computes the v4 Authorization header value for a request
// described piecewise. path is the decoded request path; it is
// re-encoded per the v4 rules before hashing. The header set must
// already contain every header that will be sent, including Host and
// the X-Amz-* pair.
func (s *Signer) SignHeader(method, path, rawQuery string, headers http.Header, payloadHash string, t time.Time) string {
	t = t.UTC()
	scope := s.scope(t)

	canonicalHeaders, signedNames := canonicalizeHeaders(headers)
	canonicalQS := CanonicalQueryString(rawQuery)

	crHash := hashCanonicalRequest(method, CanonicalURI(path), canonicalQS, canonicalHeaders, signedNames, payloadHash)
	stringToSign := buildStringToSign(t, scope, crHash)
	signature := hex.EncodeToString(hmacSHA256(s.signingKey(t), stringToSign))

	return Algorithm + " Credential=" + s.AccessKey + "/" + scope +
		", SignedHeaders=" + strings.Join(signedNames, ";") +
		", Signature=" + signature
}

func (s *Signer) scope(t time.Time) string {
	return t.Format(signerDateFormat) + "/" + s.Region + "/" + serviceName + "/" + requestTypeTag
}

// signingKey derives the time-scoped key via the four chained HMAC
// operations over date, region, service and request-type tag.
func (s *Signer) signingKey(t time.Time) []byte {
	kDate := hmacSHA256([]byte("AWS4"+s.SecretKey), t.Format(signerDateFormat))
	kRegion := hmacSHA256(kDate, s.Region)
	kService := hmacSHA256(kRegion, serviceName)
	return hmacSHA256(kService, requestTypeTag)
}

func buildStringToSign(t time.Time, scope, canonicalRequestHash string) string {
	return Algorithm + "\n" + t.Format(amzDateFormat) + "\n" + scope + "\n" + canonicalRequestHash
}

func hashCanonicalRequest(method, path, canonicalQS, canonicalHeaders string, signedNames []string, payloadHash string) string {
	var b strings.Builder
	b.WriteString(method)
	b.WriteString("\n")
	b.WriteString(path)
	b.WriteString("\n")
	b.WriteString(canonicalQS)
	b.WriteString("\n")
	b.WriteString(canonicalHeaders)
	b.WriteString("\n")
	b.WriteString(strings.Join(signedNames, ";"))
	b.WriteString("\n")
	b.WriteString(payloadHash)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// canonicalizeHeaders lower-cases names, drops the ignored set, collapses
// internal whitespace, joins multi-valued headers with commas and sorts
// the result lexicographically. Returns the canonical header block and
// the ordered signed-header names.
func canonicalizeHeaders(headers http.Header) (string, []string) {
	canonical := make(map[string]string, len(headers))
	names := make([]string, 0, len(headers))

	for name, values := range headers {
		lower := strings.ToLower(name)
		if _, skip := ignoredHeaders[lower]; skip {
			continue
		}
		collapsed := make([]string, len(values))
		for i, v := range values {
			collapsed[i] = strings.Join(strings.Fields(v), " ")
		}
		canonical[lower] = strings.Join(collapsed, ",")
		names = append(names, lower)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteString(":")
		b.WriteString(canonical[name])
		b.WriteString("\n")
	}
	return b.String(), names
}

// CanonicalURI re-encodes a decoded request path per the v4 rules:
// every byte outside the unreserved set becomes uppercase %XX, slashes
// survive. The store derives the same form when it verifies, so paths
// containing characters net/url leaves bare (=, $, @) still match.
func CanonicalURI(path string) string {
	if path == "" {
		return "/"
	}
	return uriEncode(path, false)
}

// CanonicalQueryString sorts query parameters by key then value and
// percent-encodes both per the v4 rules.
func CanonicalQueryString(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}
	return encodeQuery(values)
}

func encodeQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		vs := append([]string(nil), values[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			parts = append(parts, uriEncode(k, true)+"="+uriEncode(v, true))
		}
	}
	return strings.Join(parts, "&")
}

// uriEncode percent-encodes per the v4 rules: unreserved characters pass
// through, everything else becomes uppercase %XX, and slashes survive
// only when encodeSlash is false (object paths).
func uriEncode(s string, encodeSlash bool) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.' || c == '~' {
			b.WriteByte(c)
			continue
		}
		if c == '/' && !encodeSlash {
			b.WriteByte(c)
			continue
		}
		b.WriteString("%")
		b.WriteString(strings.ToUpper(hex.EncodeToString([]byte{c})))
	}
	return b.String()
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

// PayloadHash returns the hex SHA-256 of a request body.
func PayloadHash(body []byte) string {
	if len(body) == 0 {
		return EmptyPayloadSHA256
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
