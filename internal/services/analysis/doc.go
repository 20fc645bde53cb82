// Package analysis posts an agenda, transcript, and minutes of meeting to the
// analysis workflow and decodes its verdict.
package analysis
