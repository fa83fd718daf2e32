// Package images stores the image library backing the captioning queue.
//
// Each row tracks the image's location (remote URL or local file), the
// context the provider sees (title and parent page title), and the live alt
// text with provenance: whether it was generated or hand entered, and when.
// Queue jobs reference rows here by image id.
package images
