// Package pipeline holds the storage key conventions, notification event
// types, and the bounded event dispatcher shared across the translation
// pipeline stages.
//
// Key shapes are a wire contract with the external translation service and
// with clients holding presigned upload URLs; change them only with a
// migration story.
package pipeline

import (
	"fmt"
	"strings"
)

const (
	// UploadPrefix namespaces intake objects: uploads/{request_id}/{filename}.
	UploadPrefix = "uploads/"

	// ScratchPrefix namespaces extraction output in the scratch bucket:
	// scratch/{token}/extracted.txt.
	ScratchPrefix = "scratch/"

	// scratchFilename is the single text object an extraction run produces.
	scratchFilename = "extracted.txt"

	// OutputJobMarker precedes the external job id in batch output keys.
	// The translation service writes results under a path segment of the
	// form <account>-TranslateText-<jobID>/.
	OutputJobMarker = "TranslateText-"

	// AuxiliarySuffix marks side artifacts of a batch job, not deliverables.
	AuxiliarySuffix = ".auxiliary"

	// detailsSegment marks the per-document detail artifacts sub-path.
	detailsSegment = "details/"
)

// Object metadata keys attached to intake uploads and read back by the
// orchestrator. Stored on the object itself so the language pair survives
// even when the job record write races the upload.
const (
	MetaTargetLanguage = "target-language"
	MetaSourceLanguage = "source-language"
)

// UploadKey builds the intake object key for a request.
func UploadKey(requestID, filename string) string {
	return UploadPrefix + requestID + "/" + filename
}

// ParseUploadKey decodes an intake key back into request id and original
// filename. The request id is the second path segment, the filename the
// last. Unrecognized shapes fail closed.
func ParseUploadKey(key string) (requestID, filename string, err error) {
	if !strings.HasPrefix(key, UploadPrefix) {
		return "", "", fmt.Errorf("key %q is not under %s", key, UploadPrefix)
	}

	parts := strings.Split(key, "/")
	if len(parts) < 3 || parts[1] == "" || parts[len(parts)-1] == "" {
		return "", "", fmt.Errorf("unrecognized upload key shape: %q", key)
	}

	return parts[1], parts[len(parts)-1], nil
}

// ScratchDir returns the scratch prefix for an extraction token, with
// trailing separator.
func ScratchDir(token string) string {
	return ScratchPrefix + token + "/"
}

// ScratchKey returns the key the extracted text object is written under.
func ScratchKey(token string) string {
	return ScratchDir(token) + scratchFilename
}

// JobIDFromOutputKey extracts the external job id embedded in a batch output
// key: the segment following OutputJobMarker, up to the next path separator.
func JobIDFromOutputKey(key string) (string, bool) {
	idx := strings.Index(key, OutputJobMarker)
	if idx < 0 {
		return "", false
	}

	rest := key[idx+len(OutputJobMarker):]
	if cut := strings.IndexByte(rest, '/'); cut >= 0 {
		rest = rest[:cut]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}

// IsAuxiliaryKey reports whether an output key is a side artifact of the
// batch job rather than a deliverable.
func IsAuxiliaryKey(key string) bool {
	if strings.HasSuffix(key, AuxiliarySuffix) {
		return true
	}
	return strings.Contains(key, "/"+detailsSegment) || strings.HasPrefix(key, detailsSegment)
}

// IsDirectoryMarker reports whether an event refers to a zero-byte
// directory placeholder rather than an object.
func IsDirectoryMarker(key string, size int64) bool {
	return size == 0 && strings.HasSuffix(key, "/")
}

// S3URI renders an s3://bucket/prefix URI for batch job configuration.
func S3URI(bucket, prefix string) string {
	return "s3://" + bucket + "/" + prefix
}

// PrefixOf returns the containing prefix of a key, with trailing separator.
// A key with no separator maps to the empty (bucket root) prefix.
func PrefixOf(key string) string {
	idx := strings.LastIndexByte(key, '/')
	if idx < 0 {
		return ""
	}
	return key[:idx+1]
}
