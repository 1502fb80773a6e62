// Package html provides a Normaliser implementation for HTML documents.
// It keeps the text nodes of the page, drops scripts, styles and other
// non-content elements, and collapses whitespace.
package html
