package storage

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*S3Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewS3Client(srv.URL, "minioadmin", "minioadmin", "us-east-1")
	require.NoError(t, err)
	return client, srv
}

func TestS3ClientSignsEveryRequest(t *testing.T) {
	var authorization, amzDate, contentSha string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
		amzDate = r.Header.Get("X-Amz-Date")
		contentSha = r.Header.Get("X-Amz-Content-Sha256")
		w.WriteHeader(http.StatusOK)
	}))

	exists, err := client.BucketExists(context.Background(), "document")
	require.NoError(t, err)
	require.True(t, exists)

	require.True(t, strings.HasPrefix(authorization, "AWS4-HMAC-SHA256 Credential=minioadmin/"))
	require.Contains(t, authorization, "/us-east-1/s3/aws4_request")
	require.Contains(t, authorization, "SignedHeaders=")
	require.Contains(t, authorization, "Signature=")
	require.NotEmpty(t, amzDate)
	require.NotEmpty(t, contentSha)
}

func TestS3ClientBucketExists(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		if r.URL.Path == "/present" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	exists, err := client.BucketExists(context.Background(), "present")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = client.BucketExists(context.Background(), "absent")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestS3ClientEnsureBucketCreatesWhenAbsent(t *testing.T) {
	var created bool
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			require.Equal(t, "/newbucket", r.URL.Path)
			created = true
			w.WriteHeader(http.StatusOK)
		}
	}))

	require.NoError(t, client.EnsureBucket(context.Background(), "newbucket"))
	require.True(t, created)
}

func TestS3ClientEnsureBucketSkipsWhenPresent(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method, "existing bucket must not be re-created")
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, client.EnsureBucket(context.Background(), "document"))
}

func TestS3ClientCreateMultipartUpload(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/document/0f/34/hash", r.URL.Path)
		_, hasUploads := r.URL.Query()["uploads"]
		require.True(t, hasUploads, "initiate must carry the uploads marker")

		w.Header().Set("Content-Type", "application/xml")
		_ = xml.NewEncoder(w).Encode(initiateMultipartUploadResult{
			Bucket:   "document",
			Key:      "0f/34/hash",
			UploadID: "task-123",
		})
	}))

	uploadID, err := client.CreateMultipartUpload(context.Background(), "document", "0f/34/hash")
	require.NoError(t, err)
	require.Equal(t, "task-123", uploadID)
}

func TestS3ClientListParts(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "task-123", r.URL.Query().Get("uploadId"))
		require.Equal(t, "5", r.URL.Query().Get("max-parts"))

		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, `<?xml version="1.0"?>
<ListPartsResult>
  <Part><PartNumber>1</PartNumber><ETag>"etag-1"</ETag><Size>10485760</Size></Part>
  <Part><PartNumber>2</PartNumber><ETag>"etag-2"</ETag><Size>10485760</Size></Part>
  <Part><PartNumber>4</PartNumber><ETag>"etag-4"</ETag><Size>10485760</Size></Part>
</ListPartsResult>`)
	}))

	parts, err := client.ListParts(context.Background(), "document", "0f/34/hash", "task-123", 5)
	require.NoError(t, err)
	require.Len(t, parts, 3)
	require.Equal(t, 1, parts[0].Number)
	require.Equal(t, 4, parts[2].Number)
	require.Equal(t, `"etag-2"`, parts[1].ETag)
}

func TestS3ClientCompleteMultipartUpload(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "task-123", r.URL.Query().Get("uploadId"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload completeMultipartUpload
		require.NoError(t, xml.Unmarshal(body, &payload))
		require.Len(t, payload.Parts, 2)
		require.Equal(t, 1, payload.Parts[0].PartNumber)

		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `<CompleteMultipartUploadResult><ETag>"final"</ETag></CompleteMultipartUploadResult>`)
	}))

	err := client.CompleteMultipartUpload(context.Background(), "document", "0f/34/hash", "task-123", []Part{
		{Number: 1, ETag: "etag-1"},
		{Number: 2, ETag: "etag-2"},
	})
	require.NoError(t, err)
}

func TestS3ClientErrorsWrapErrStore(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := client.CreateMultipartUpload(context.Background(), "document", "0f/34/hash")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrStore), "store failures must wrap ErrStore")

	_, err = client.ListParts(context.Background(), "document", "0f/34/hash", "expired", 5)
	require.True(t, errors.Is(err, ErrStore))
}

func TestS3ClientPresignedURLs(t *testing.T) {
	client, err := NewS3Client("http://localhost:9000", "minioadmin", "minioadmin", "us-east-1")
	require.NoError(t, err)
	client.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }

	raw, err := client.PresignedUploadPartURL(context.Background(), "document", "0f/34/hash", "task-123", 3, 10*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "/document/0f/34/hash", u.Path)
	require.Equal(t, "task-123", u.Query().Get("uploadId"))
	require.Equal(t, "3", u.Query().Get("partNumber"))
	require.NotEmpty(t, u.Query().Get("X-Amz-Signature"))

	get, err := client.PresignedGetURL(context.Background(), "document", "0f/34/hash", 10*time.Minute, url.Values{
		"response-content-disposition": {`attachment;filename="report.pdf"`},
	})
	require.NoError(t, err)

	gu, err := url.Parse(get)
	require.NoError(t, err)
	require.Contains(t, gu.Query().Get("response-content-disposition"), "report.pdf")
	require.NotEmpty(t, gu.Query().Get("X-Amz-Signature"))
}

func TestS3ClientPutGetDeleteObject(t *testing.T) {
	payload := []byte("object payload")
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			require.Equal(t, payload, body)
			require.Equal(t, "text/plain", r.Header.Get("Content-Type"))
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			_, _ = w.Write(payload)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	}))

	ctx := context.Background()
	require.NoError(t, client.PutObject(ctx, "document", "0f/34/hash", strings.NewReader(string(payload)), int64(len(payload)), "text/plain"))

	got, err := client.GetObject(ctx, "document", "0f/34/hash")
	require.NoError(t, err)
	require.Equal(t, payload, got)

	require.NoError(t, client.DeleteObject(ctx, "document", "0f/34/hash"))
}
