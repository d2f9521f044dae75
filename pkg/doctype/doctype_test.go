package doctype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		filename string
		want     Class
	}{
		{"report.txt", ClassText},
		{"page.html", ClassHTML},
		{"page.HTM", ClassHTML},
		{"scan.pdf", ClassPDF},
		{"Scan.PDF", ClassPDF},
		{"uploads/req/manual.pdf", ClassPDF},
		{"archive.zip", ClassUnsupported},
		{"noext", ClassUnsupported},
		{"", ClassUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.filename))
		})
	}
}

func TestClass_BatchCapable(t *testing.T) {
	assert.True(t, ClassText.BatchCapable())
	assert.True(t, ClassHTML.BatchCapable())
	assert.False(t, ClassPDF.BatchCapable())
	assert.False(t, ClassUnsupported.BatchCapable())
}

func TestClass_ContentType(t *testing.T) {
	assert.Equal(t, "text/plain", ClassText.ContentType())
	assert.Equal(t, "text/html", ClassHTML.ContentType())
	assert.Equal(t, "application/pdf", ClassPDF.ContentType())
}

func TestContentTypeForExt(t *testing.T) {
	assert.Equal(t, "text/html", ContentTypeForExt(".HTML"))
	assert.Equal(t, "text/plain", ContentTypeForExt(".txt"))
	assert.Equal(t, "application/pdf", ContentTypeForExt(".pdf"))
	assert.Equal(t, "application/octet-stream", ContentTypeForExt(".bin"))
	assert.Equal(t, "application/octet-stream", ContentTypeForExt(""))
}
