// Package alttext normalizes provider captions into publishable alt text
// and applies the minimal usability gate. Both functions are pure; all
// storage and policy decisions live with the callers.
package alttext
