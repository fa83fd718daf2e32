// Package captioner wraps the external image captioning endpoint.
//
// The client supports two request modes: URL reference (default) and direct
// upload, which inlines a local file as base64 when the file is readable and
// under the size ceiling. Expected failures, including upstream HTTP errors
// with best-effort diagnostic extraction, come back as typed *Error values
// so the processor can persist a stable code on the failed job.
package captioner
