// Package evaluation grades finished conversations with a model and filters
// record sets for downstream use, e.g. keeping only the most realistic phone
// call transcripts of a batch.
package evaluation
