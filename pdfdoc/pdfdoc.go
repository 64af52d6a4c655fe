// CLAUDE:SUMMARY pdfcpu-backed merge of the rendered CV with attachment documents, plus page count and per-page text helpers.
// Package pdfdoc merges and inspects PDF documents with pdfcpu.
package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrMerge is returned when a document cannot be read or merged. No
// partial output accompanies it.
var ErrMerge = errors.New("pdfdoc: merge failed")

var disableConfigDir sync.Once

// config returns a fresh pdfcpu configuration without touching the user
// config directory.
func config() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Merge appends the pages of each part, in order, after the pages of
// primary. With no parts, primary is returned as is.
func Merge(primary []byte, parts ...[]byte) ([]byte, error) {
	if len(primary) == 0 {
		return nil, fmt.Errorf("%w: empty primary document", ErrMerge)
	}
	if len(parts) == 0 {
		return primary, nil
	}

	rs := make([]io.ReadSeeker, 0, len(parts)+1)
	rs = append(rs, bytes.NewReader(primary))
	for _, p := range parts {
		rs = append(rs, bytes.NewReader(p))
	}

	var out bytes.Buffer
	if err := api.MergeRaw(rs, &out, false, config()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMerge, err)
	}
	return out.Bytes(), nil
}

// PageCount returns the number of pages of doc.
func PageCount(doc []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(doc), config())
	if err != nil {
		return 0, fmt.Errorf("pdfdoc: page count: %w", err)
	}
	return n, nil
}

// PageTexts returns the text shown on each page, one entry per page.
// Only literal strings drawn with Tj, TJ and ' are recovered; pages using
// hex-encoded or CID fonts come back empty.
func PageTexts(doc []byte) ([]string, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(doc), config())
	if err != nil {
		return nil, fmt.Errorf("pdfdoc: read: %w", err)
	}
	texts := make([]string, ctx.PageCount)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		texts[pageNr-1] = pageText(ctx, pageNr)
	}
	return texts, nil
}

func pageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ""
	}
	return textFromStream(data)
}
