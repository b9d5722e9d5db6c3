// Package policy maps file content and names onto physical storage
// coordinates: the bucket a file belongs in based on its suffix, the
// object path derived from its content hash, and the Content-Type
// reported for downloads.
package policy

import (
	"fmt"
	"strings"
)

// Storage bucket categories. Every uploaded file lands in exactly one of
// these based on its suffix; thumbnails live in BucketImagePreview next
// to their originals in BucketImage.
const (
	BucketDocument     = "document"
	BucketPackage      = "package"
	BucketAudio        = "audio"
	BucketVideo        = "video"
	BucketImage        = "image"
	BucketImagePreview = "image-preview"
	BucketOther        = "other"
)

var bucketSuffixes = map[string]string{
	"doc": BucketDocument, "docx": BucketDocument, "ppt": BucketDocument,
	"pptx": BucketDocument, "xls": BucketDocument, "xlsx": BucketDocument,
	"txt": BucketDocument, "pdf": BucketDocument, "md": BucketDocument,
	"csv": BucketDocument, "wps": BucketDocument,

	"zip": BucketPackage, "rar": BucketPackage, "7z": BucketPackage,
	"tar": BucketPackage, "gz": BucketPackage, "bz2": BucketPackage,
	"jar": BucketPackage,

	"mp3": BucketAudio, "wav": BucketAudio, "wma": BucketAudio,
	"flac": BucketAudio, "aac": BucketAudio, "ogg": BucketAudio,
	"m4a": BucketAudio,

	"mp4": BucketVideo, "avi": BucketVideo, "mov": BucketVideo,
	"wmv": BucketVideo, "flv": BucketVideo, "mkv": BucketVideo,
	"mpeg": BucketVideo, "mpg": BucketVideo, "rmvb": BucketVideo,
	"3gp": BucketVideo,

	"jpg": BucketImage, "jpeg": BucketImage, "png": BucketImage,
	"gif": BucketImage, "bmp": BucketImage, "webp": BucketImage,
	"tif": BucketImage, "tiff": BucketImage, "svg": BucketImage,
	"ico": BucketImage,
}

// BucketBySuffix returns the storage bucket for a file suffix. Unknown
// suffixes fall into BucketOther.
func BucketBySuffix(suffix string) string {
	suffix = strings.ToLower(strings.TrimPrefix(suffix, "."))
	if bucket, ok := bucketSuffixes[suffix]; ok {
		return bucket
	}
	return BucketOther
}

// Suffix extracts the extension from a file name, without the dot.
// Returns "" when the name has no extension.
func Suffix(fileName string) string {
	idx := strings.LastIndexByte(fileName, '.')
	if idx < 0 || idx == len(fileName)-1 {
		return ""
	}
	return strings.ToLower(fileName[idx+1:])
}

// ObjectPath returns the deterministic directory prefix for a content
// hash. Two leading hash pairs fan objects out across directories, so
// listing any single prefix stays cheap.
func ObjectPath(contentHash string) (string, error) {
	if len(contentHash) < 4 {
		return "", fmt.Errorf("content hash %q too short", contentHash)
	}
	return contentHash[:2] + "/" + contentHash[2:4], nil
}

// ObjectName returns the full object key for a record's storage path and
// content hash. All records sharing a hash address the same object.
func ObjectName(storagePath, contentHash string) string {
	return storagePath + "/" + contentHash
}

var contentTypes = map[string]string{
	"txt":  "text/plain",
	"csv":  "text/csv",
	"md":   "text/plain",
	"html": "text/html",
	"htm":  "text/html",
	"css":  "text/css",
	"xml":  "text/xml",
	"json": "application/json",
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"zip":  "application/zip",
	"gz":   "application/gzip",
	"tar":  "application/x-tar",
	"7z":   "application/x-7z-compressed",
	"rar":  "application/vnd.rar",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"flac": "audio/flac",
	"aac":  "audio/aac",
	"ogg":  "audio/ogg",
	"mp4":  "video/mp4",
	"mpeg": "video/mpeg",
	"mpg":  "video/mpeg",
	"avi":  "video/avi",
	"mov":  "video/quicktime",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"ico":  "image/x-icon",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
}

// ContentTypeBySuffix returns the Content-Type for a file suffix, or
// application/octet-stream when the suffix is unknown.
func ContentTypeBySuffix(suffix string) string {
	suffix = strings.ToLower(strings.TrimPrefix(suffix, "."))
	if ct, ok := contentTypes[suffix]; ok {
		return ct
	}
	return "application/octet-stream"
}
