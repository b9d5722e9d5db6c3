package signer_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/lxp135/minio-plus/internal/signer"

	"github.com/stretchr/testify/require"
)

const (
	accessKey = "minioadmin"
	secretKey = "minioadmin"
	region    = "us-east-1"
)

func fixedTime() time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
}

func newHeaders() http.Header {
	h := http.Header{}
	h.Set("Host", "localhost:9000")
	h.Set("X-Amz-Date", fixedTime().Format("20060102T150405Z"))
	h.Set("X-Amz-Content-Sha256", signer.EmptyPayloadSHA256)
	return h
}

func TestSignHeaderDeterministic(t *testing.T) {
	s := signer.New(accessKey, secretKey, region)

	first := s.SignHeader(http.MethodHead, "/document", "", newHeaders(), signer.EmptyPayloadSHA256, fixedTime())
	second := s.SignHeader(http.MethodHead, "/document", "", newHeaders(), signer.EmptyPayloadSHA256, fixedTime())
	require.Equal(t, first, second, "same inputs must produce byte-identical signatures")

	require.True(t, strings.HasPrefix(first, "AWS4-HMAC-SHA256 Credential="+accessKey+"/20250101/"+region+"/s3/aws4_request"))
	require.Contains(t, first, "SignedHeaders=host;x-amz-content-sha256;x-amz-date")
	require.Contains(t, first, "Signature=")
}

func TestSignHeaderSensitivity(t *testing.T) {
	s := signer.New(accessKey, secretKey, region)
	base := s.SignHeader(http.MethodHead, "/document", "", newHeaders(), signer.EmptyPayloadSHA256, fixedTime())

	// Changing a single header value changes the signature.
	altered := newHeaders()
	altered.Set("Host", "localhost:9001")
	require.NotEqual(t, base, s.SignHeader(http.MethodHead, "/document", "", altered, signer.EmptyPayloadSHA256, fixedTime()))

	// Changing the timestamp changes the signature.
	later := fixedTime().Add(time.Second)
	h := newHeaders()
	h.Set("X-Amz-Date", later.Format("20060102T150405Z"))
	require.NotEqual(t, base, s.SignHeader(http.MethodHead, "/document", "", h, signer.EmptyPayloadSHA256, later))

	// Changing the method changes the signature.
	require.NotEqual(t, base, s.SignHeader(http.MethodPut, "/document", "", newHeaders(), signer.EmptyPayloadSHA256, fixedTime()))
}

func TestSignHeaderExcludesIgnoredHeaders(t *testing.T) {
	s := signer.New(accessKey, secretKey, region)
	base := s.SignHeader(http.MethodGet, "/bucket/key", "", newHeaders(), signer.EmptyPayloadSHA256, fixedTime())

	// Headers in the excluded set must not affect the signature.
	h := newHeaders()
	h.Set("User-Agent", "some-agent/1.0")
	h.Set("Content-Type", "application/xml")
	h.Set("Accept-Encoding", "gzip")
	withIgnored := s.SignHeader(http.MethodGet, "/bucket/key", "", h, signer.EmptyPayloadSHA256, fixedTime())
	require.Equal(t, base, withIgnored)
}

func TestSignHeaderCollapsesWhitespace(t *testing.T) {
	s := signer.New(accessKey, secretKey, region)

	h1 := newHeaders()
	h1.Set("X-Amz-Meta-Note", "a   b  c")
	h2 := newHeaders()
	h2.Set("X-Amz-Meta-Note", "a b c")

	require.Equal(t,
		s.SignHeader(http.MethodPut, "/b/k", "", h1, signer.EmptyPayloadSHA256, fixedTime()),
		s.SignHeader(http.MethodPut, "/b/k", "", h2, signer.EmptyPayloadSHA256, fixedTime()),
		"multi-space header values must canonicalize identically")
}

func TestCanonicalQueryString(t *testing.T) {
	require.Equal(t, "", signer.CanonicalQueryString(""))
	require.Equal(t, "partNumber=3&uploadId=abc", signer.CanonicalQueryString("uploadId=abc&partNumber=3"))
	require.Equal(t, "a=1&a=2&b=", signer.CanonicalQueryString("b=&a=2&a=1"))
	require.Equal(t, "key=a%20b", signer.CanonicalQueryString("key=a+b"))
}

func TestSignRequestStampsHeaders(t *testing.T) {
	s := signer.New(accessKey, secretKey, region)

	r, err := http.NewRequest(http.MethodPut, "http://localhost:9000/document", nil)
	require.NoError(t, err)

	s.SignRequest(r, signer.EmptyPayloadSHA256, fixedTime())

	require.Equal(t, "20250101T000000Z", r.Header.Get("X-Amz-Date"))
	require.Equal(t, signer.EmptyPayloadSHA256, r.Header.Get("X-Amz-Content-Sha256"))
	require.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "AWS4-HMAC-SHA256 Credential="))
}

func TestPresign(t *testing.T) {
	s := signer.New(accessKey, secretKey, region)

	u, err := url.Parse("http://localhost:9000/document/0f/34/0f343b0931126a20f133d67c2b018a3b?uploadId=task-1&partNumber=2")
	require.NoError(t, err)

	signed := s.Presign(http.MethodPut, u, 10*time.Minute, fixedTime())

	q := signed.Query()
	require.Equal(t, signer.Algorithm, q.Get("X-Amz-Algorithm"))
	require.Equal(t, accessKey+"/20250101/"+region+"/s3/aws4_request", q.Get("X-Amz-Credential"))
	require.Equal(t, "600", q.Get("X-Amz-Expires"))
	require.Equal(t, "host", q.Get("X-Amz-SignedHeaders"))
	require.NotEmpty(t, q.Get("X-Amz-Signature"))

	// Original query parameters survive and stay covered by the signature.
	require.Equal(t, "task-1", q.Get("uploadId"))
	require.Equal(t, "2", q.Get("partNumber"))

	// Presigning is deterministic for fixed inputs.
	again := s.Presign(http.MethodPut, u, 10*time.Minute, fixedTime())
	require.Equal(t, signed.String(), again.String())

	// A different part number yields a different signature.
	u2, _ := url.Parse("http://localhost:9000/document/0f/34/0f343b0931126a20f133d67c2b018a3b?uploadId=task-1&partNumber=3")
	other := s.Presign(http.MethodPut, u2, 10*time.Minute, fixedTime())
	require.NotEqual(t, q.Get("X-Amz-Signature"), other.Query().Get("X-Amz-Signature"))
}

func TestCanonicalURI(t *testing.T) {
	// Hex-hash object paths pass through untouched.
	require.Equal(t, "/document/0f/34/0f343b09", signer.CanonicalURI("/document/0f/34/0f343b09"))
	require.Equal(t, "/", signer.CanonicalURI(""))
	require.Equal(t, "/", signer.CanonicalURI("/"))

	// Characters net/url leaves bare in paths are still percent-encoded,
	// slashes survive, and the escapes are uppercase.
	require.Equal(t, "/bucket/a%3Db%40c%24d.txt", signer.CanonicalURI("/bucket/a=b@c$d.txt"))
	require.Equal(t, "/bucket/with%20space", signer.CanonicalURI("/bucket/with space"))
	require.Equal(t, "/bucket/100%25", signer.CanonicalURI("/bucket/100%"))
}

func TestSignHeaderEncodesPath(t *testing.T) {
	s := signer.New(accessKey, secretKey, region)
	headers := http.Header{
		"Host":       {"localhost:9000"},
		"X-Amz-Date": {"20250101T120000Z"},
	}

	plain := s.SignHeader(http.MethodGet, "/bucket/a=b", "", headers, signer.EmptyPayloadSHA256, fixedTime())
	encoded := s.SignHeader(http.MethodGet, "/bucket/a%3Db", "", headers, signer.EmptyPayloadSHA256, fixedTime())

	// The decoded and pre-escaped spellings are different canonical
	// paths and must not collide.
	require.NotEqual(t, plain, encoded)
}
