// Package server is the web gateway: a submission form, the review page, and
// downloads of recently generated reports held in memory.
package server
