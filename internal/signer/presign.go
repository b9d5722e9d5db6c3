package signer

import (
	"encoding/hex"
	"net/url"
	"strconv"
	"time"
)

// Presign returns a copy of u carrying v4 query authentication valid for
// expires from t. Any query parameters already present on u (uploadId,
// partNumber, response-content-*) are preserved and covered by the
// signature. The payload is left unsigned so clients can stream bodies.
func (s *Signer) Presign(method string, u *url.URL, expires time.Duration, t time.Time) *url.URL {
	t = t.UTC()
	scope := s.scope(t)

	query := u.Query()
	query.Set("X-Amz-Algorithm", Algorithm)
	query.Set("X-Amz-Credential", s.AccessKey+"/"+scope)
	query.Set("X-Amz-Date", t.Format(amzDateFormat))
	query.Set("X-Amz-Expires", strconv.FormatInt(int64(expires/time.Second), 10))
	query.Set("X-Amz-SignedHeaders", "host")

	canonicalQS := encodeQuery(query)
	canonicalHeaders := "host:" + u.Host + "\n"

	crHash := hashCanonicalRequest(method, CanonicalURI(u.Path), canonicalQS, canonicalHeaders, []string{"host"}, UnsignedPayload)
	stringToSign := buildStringToSign(t, scope, crHash)
	signature := hex.EncodeToString(hmacSHA256(s.signingKey(t), stringToSign))

	signed := *u
	signed.RawQuery = canonicalQS + "&X-Amz-Signature=" + signature
	return &signed
}
