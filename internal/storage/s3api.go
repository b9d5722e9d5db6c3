package storage

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lxp135/minio-plus/internal/signer"
)

// S3Client talks to the object store directly over signed HTTP requests
// using path-style addressing. It implements the multipart primitives
// the engine needs without going through an SDK.
type S3Client struct {
	endpoint *url.URL
	signer   *signer.Signer
	httpc    *http.Client
	now      func() time.Time
}

// NewS3Client returns a raw client for the store at endpoint
// (e.g. "http://localhost:9000") signing with the given credentials.
func NewS3Client(endpoint, accessKey, secretKey, region string) (*S3Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q must include scheme and host", endpoint)
	}

	return &S3Client{
		endpoint: u,
		signer:   signer.New(accessKey, secretKey, region),
		httpc:    &http.Client{Timeout: 30 * time.Second},
		now:      time.Now,
	}, nil
}

type initiateMultipartUploadResult struct {
	XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
	Bucket   string   `xml:"Bucket"`
	Key      string   `xml:"Key"`
	UploadID string   `xml:"UploadId"`
}

type listPartsResult struct {
	XMLName     xml.Name `xml:"ListPartsResult"`
	IsTruncated bool     `xml:"IsTruncated"`
	Parts       []struct {
		PartNumber int    `xml:"PartNumber"`
		ETag       string `xml:"ETag"`
		Size       int64  `xml:"Size"`
	} `xml:"Part"`
}

type completeMultipartUpload struct {
	XMLName xml.Name          `xml:"CompleteMultipartUpload"`
	Parts   []completeXMLPart `xml:"Part"`
}

type completeXMLPart struct {
	PartNumber int    `xml:"PartNumber"`
	ETag       string `xml:"ETag"`
}

func (c *S3Client) objectURL(bucket, object string, query url.Values) *url.URL {
	u := *c.endpoint
	u.Path = "/" + bucket
	if object != "" {
		u.Path += "/" + object
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return &u
}

// do signs and executes one request. body may be nil; payloadHash must
// describe it. The response body is returned for 2xx statuses.
func (c *S3Client) do(ctx context.Context, method string, u *url.URL, body []byte, payloadHash string) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build %s %s: %v", ErrStore, method, u.Path, err)
	}
	c.signer.SignRequest(req, payloadHash, c.now())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s %s: %v", ErrStore, method, u.Path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response for %s %s: %v", ErrStore, method, u.Path, err)
	}
	return respBody, resp.StatusCode, nil
}

func (c *S3Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, status, err := c.do(ctx, http.MethodHead, c.objectURL(bucket, "", nil), nil, signer.EmptyPayloadSHA256)
	if err != nil {
		return false, err
	}
	switch {
	case status >= 200 && status < 300:
		return true, nil
	case status == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("%w: HEAD /%s: status %d", ErrStore, bucket, status)
	}
}

func (c *S3Client) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := c.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	slog.Info("creating bucket", "bucket", bucket)
	_, status, err := c.do(ctx, http.MethodPut, c.objectURL(bucket, "", nil), nil, signer.EmptyPayloadSHA256)
	if err != nil {
		return err
	}
	// 409 means another caller created it first; that is fine.
	if status >= 300 && status != http.StatusConflict {
		return fmt.Errorf("%w: PUT /%s: status %d", ErrStore, bucket, status)
	}
	return nil
}

func (c *S3Client) CreateMultipartUpload(ctx context.Context, bucket, object string) (string, error) {
	query := url.Values{"uploads": {""}}
	body, status, err := c.do(ctx, http.MethodPost, c.objectURL(bucket, object, query), nil, signer.EmptyPayloadSHA256)
	if err != nil {
		return "", err
	}
	if status >= 300 {
		return "", fmt.Errorf("%w: initiate multipart for %s/%s: status %d", ErrStore, bucket, object, status)
	}

	var result initiateMultipartUploadResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: decode initiate response: %v", ErrStore, err)
	}
	if result.UploadID == "" {
		return "", fmt.Errorf("%w: initiate multipart for %s/%s: empty upload id", ErrStore, bucket, object)
	}
	return result.UploadID, nil
}

func (c *S3Client) ListParts(ctx context.Context, bucket, object, uploadID string, maxParts int) ([]Part, error) {
	query := url.Values{
		"uploadId":           {uploadID},
		"max-parts":          {strconv.Itoa(maxParts)},
		"part-number-marker": {"0"},
	}
	body, status, err := c.do(ctx, http.MethodGet, c.objectURL(bucket, object, query), nil, signer.EmptyPayloadSHA256)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, fmt.Errorf("%w: list parts for upload %s: status %d", ErrStore, uploadID, status)
	}

	var result listPartsResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: decode list parts response: %v", ErrStore, err)
	}

	parts := make([]Part, 0, len(result.Parts))
	for _, p := range result.Parts {
		parts = append(parts, Part{Number: p.PartNumber, ETag: p.ETag, Size: p.Size})
	}
	return parts, nil
}

func (c *S3Client) CompleteMultipartUpload(ctx context.Context, bucket, object, uploadID string, parts []Part) error {
	payload := completeMultipartUpload{}
	for _, p := range parts {
		payload.Parts = append(payload.Parts, completeXMLPart{PartNumber: p.Number, ETag: p.ETag})
	}
	body, err := xml.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode complete request: %v", ErrStore, err)
	}

	query := url.Values{"uploadId": {uploadID}}
	respBody, status, err := c.do(ctx, http.MethodPost, c.objectURL(bucket, object, query), body, signer.PayloadHash(body))
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("%w: complete multipart for upload %s: status %d", ErrStore, uploadID, status)
	}
	// S3 reports some merge failures inside a 200 body.
	if bytes.Contains(respBody, []byte("<Error>")) {
		return fmt.Errorf("%w: complete multipart for upload %s: error response", ErrStore, uploadID)
	}
	return nil
}

func (c *S3Client) PresignedUploadPartURL(ctx context.Context, bucket, object, uploadID string, partNumber int, expires time.Duration) (string, error) {
	query := url.Values{
		"uploadId":   {uploadID},
		"partNumber": {strconv.Itoa(partNumber)},
	}
	u := c.objectURL(bucket, object, query)
	return c.signer.Presign(http.MethodPut, u, expires, c.now()).String(), nil
}

func (c *S3Client) PresignedGetURL(ctx context.Context, bucket, object string, expires time.Duration, params url.Values) (string, error) {
	query := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	u := c.objectURL(bucket, object, query)
	return c.signer.Presign(http.MethodGet, u, expires, c.now()).String(), nil
}

func (c *S3Client) PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, contentType string) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: read payload for %s/%s: %v", ErrStore, bucket, object, err)
	}
	if size >= 0 && int64(len(body)) != size {
		return fmt.Errorf("%w: payload for %s/%s is %d bytes, expected %d", ErrStore, bucket, object, len(body), size)
	}

	u := c.objectURL(bucket, object, nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build PUT %s: %v", ErrStore, u.Path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.signer.SignRequest(req, signer.PayloadHash(body), c.now())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: PUT %s: %v", ErrStore, u.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: PUT %s: status %d", ErrStore, u.Path, resp.StatusCode)
	}
	return nil
}

func (c *S3Client) GetObject(ctx context.Context, bucket, object string) ([]byte, error) {
	body, status, err := c.do(ctx, http.MethodGet, c.objectURL(bucket, object, nil), nil, signer.EmptyPayloadSHA256)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, fmt.Errorf("%w: GET /%s/%s: status %d", ErrStore, bucket, object, status)
	}
	return body, nil
}

func (c *S3Client) DeleteObject(ctx context.Context, bucket, object string) error {
	_, status, err := c.do(ctx, http.MethodDelete, c.objectURL(bucket, object, nil), nil, signer.EmptyPayloadSHA256)
	if err != nil {
		return err
	}
	if status >= 300 && status != http.StatusNotFound {
		return fmt.Errorf("%w: DELETE /%s/%s: status %d", ErrStore, bucket, object, status)
	}
	return nil
}
