// Package normalisers turns uploaded or watched files into text documents.
//
// Each sub-package handles one family of MIME types. Registry picks the
// highest-priority normaliser for a document's MIME type; Default wires the
// markdown, HTML and plain text normalisers.
package normalisers
