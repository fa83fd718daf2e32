// Command alttag is the operator CLI for the captioning queue: it manages
// the image library, runs batches on demand, reviews suggestions, and
// inspects queue state. The background schedule lives in alttagd.
package main
