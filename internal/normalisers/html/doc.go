// Package html normalises HTML pages by converting them to Markdown and
// stripping the result to text. Scripts, styles and the document head are dropped.
package html
