// Package doctype classifies documents by filename extension and maps
// extensions to content types.
//
// Batch translation consumes HTML and plain text directly; PDFs need a text
// extraction pass first. Everything else is rejected at intake.
package doctype

import (
	"path"
	"strings"
)

// Class is the content classification of an uploaded document.
type Class string

const (
	ClassText        Class = "text"
	ClassHTML        Class = "html"
	ClassPDF         Class = "pdf"
	ClassUnsupported Class = "unsupported"
)

// Classify maps a filename to its document class by extension.
func Classify(filename string) Class {
	switch Ext(filename) {
	case ".txt":
		return ClassText
	case ".html", ".htm":
		return ClassHTML
	case ".pdf":
		return ClassPDF
	default:
		return ClassUnsupported
	}
}

// Ext returns the lower-cased filename extension, including the dot.
func Ext(filename string) string {
	return strings.ToLower(path.Ext(filename))
}

// BatchCapable reports whether documents of this class can be fed to batch
// translation without preprocessing.
func (c Class) BatchCapable() bool {
	return c == ClassText || c == ClassHTML
}

// Supported reports whether the pipeline accepts this class at all.
func (c Class) Supported() bool {
	return c != ClassUnsupported
}

// ContentType returns the MIME type batch translation expects for this class.
func (c Class) ContentType() string {
	switch c {
	case ClassHTML:
		return "text/html"
	case ClassPDF:
		return "application/pdf"
	default:
		return "text/plain"
	}
}

// ContentTypeForExt maps a filename extension (with dot, any case) to a MIME
// type, falling back to application/octet-stream.
func ContentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".html", ".htm":
		return "text/html"
	case ".txt":
		return "text/plain"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// SupportedExtensions lists accepted upload extensions, for client-facing
// validation messages.
func SupportedExtensions() []string {
	return []string{".txt", ".html", ".htm", ".pdf"}
}
