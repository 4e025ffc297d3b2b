// Package textutil holds the small string helpers shared by the reports:
// case-insensitive matching, display truncation, and label sanitizing.
package textutil
