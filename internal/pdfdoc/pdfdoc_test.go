package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/eleknowledge/pdf-splitter/internal/chunker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF writes a minimal valid PDF with one page per entry in strokes.
// Each page draws strokes[i] line segments, so larger values give larger pages.
func buildPDF(strokes ...int) []byte {
	var buf bytes.Buffer
	objCount := 2 + 2*len(strokes)
	offsets := make([]int, objCount+1)

	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	buf.WriteString("%PDF-1.4\n")
	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, len(strokes))
	for i := range strokes {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(strokes)))

	for i, n := range strokes {
		pageNum, contentNum := 3+2*i, 4+2*i
		writeObj(pageNum, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> /Contents %d 0 R >>", contentNum))

		var content strings.Builder
		for j := 0; j < n; j++ {
			fmt.Fprintf(&content, "%d %d m %d %d l S\n", j%600, i, (j*7)%600, 700)
		}
		writeObj(contentNum, fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", objCount+1)
	for num := 1; num <= objCount; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", objCount+1, xref)
	return buf.Bytes()
}

func open(t *testing.T, data []byte) *Document {
	t.Helper()
	doc, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	return doc
}

func TestOpen(t *testing.T) {
	t.Run("Should read page count", func(t *testing.T) {
		doc := open(t, buildPDF(1, 2, 3))
		assert.Equal(t, 3, doc.PageCount())
	})

	t.Run("Should return a SerializationError for garbage input", func(t *testing.T) {
		_, err := Open(bytes.NewReader([]byte("not a pdf at all")))
		require.Error(t, err)

		var serr *SerializationError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, 0, serr.Page)
	})
}

func TestDocument_PageSize(t *testing.T) {
	t.Run("Should measure each page standalone", func(t *testing.T) {
		doc := open(t, buildPDF(1, 2000))

		small, err := doc.PageSize(1)
		require.NoError(t, err)
		large, err := doc.PageSize(2)
		require.NoError(t, err)

		assert.Positive(t, small)
		assert.Greater(t, large, small)
	})

	t.Run("Should give the same size on repeated probes", func(t *testing.T) {
		doc := open(t, buildPDF(50, 50))

		first, err := doc.PageSize(1)
		require.NoError(t, err)
		second, err := doc.PageSize(1)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("Should reject a page out of range", func(t *testing.T) {
		doc := open(t, buildPDF(1))

		_, err := doc.PageSize(2)

		var serr *SerializationError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, 2, serr.Page)
	})
}

func TestDocument_WritePages(t *testing.T) {
	t.Run("Should write a readable sub-document", func(t *testing.T) {
		doc := open(t, buildPDF(10, 20, 30, 40))

		var out bytes.Buffer
		require.NoError(t, doc.WritePages(&out, []int{2, 3}))

		sub := open(t, out.Bytes())
		assert.Equal(t, 2, sub.PageCount())
	})

	t.Run("Should reject an empty selection", func(t *testing.T) {
		doc := open(t, buildPDF(1))

		err := doc.WritePages(&bytes.Buffer{}, nil)

		var serr *SerializationError
		assert.True(t, errors.As(err, &serr))
	})
}

func TestDocument_Chunks(t *testing.T) {
	doc := open(t, buildPDF(300, 300, 300, 300, 300))
	pageSize, err := doc.PageSize(1)
	require.NoError(t, err)
	limit := 2*pageSize + pageSize/2

	chunks, err := chunker.BuildChunks(doc, limit)
	require.NoError(t, err)

	var pages []int
	for _, c := range chunks {
		if len(c.Pages) > 1 {
			assert.LessOrEqual(t, c.Size, limit)
		}
		pages = append(pages, c.Pages...)

		var out bytes.Buffer
		require.NoError(t, doc.WritePages(&out, c.Pages))
		assert.Equal(t, len(c.Pages), open(t, out.Bytes()).PageCount())
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, pages)
}
